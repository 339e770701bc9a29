package poynt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	adapterports "github.com/kevin07696/poynt-sync-service/internal/adapters/ports"
	"github.com/kevin07696/poynt-sync-service/internal/domain"
	"github.com/kevin07696/poynt-sync-service/internal/domain/ports"
	pkgerrors "github.com/kevin07696/poynt-sync-service/pkg/errors"
	"github.com/kevin07696/poynt-sync-service/pkg/resilience"
)

// transaction source reported on cloud-initiated refunds
const contextSourceCloud = "CLOUD"

// Gateway implements ports.PoyntGateway over the Poynt REST API
type Gateway struct {
	config *Config
	client *client
	logger adapterports.Logger
	now    func() time.Time
}

var _ ports.PoyntGateway = (*Gateway)(nil)

// NewGateway creates a new Poynt gateway
func NewGateway(
	config *Config,
	httpClient adapterports.HTTPClient,
	tokens TokenProvider,
	breaker *resilience.CircuitBreaker,
	logger adapterports.Logger,
) *Gateway {
	return &Gateway{
		config: config,
		client: newClient(config, httpClient, tokens, breaker, logger),
		logger: logger,
		now:    time.Now,
	}
}

func (g *Gateway) businessPath(format string, args ...interface{}) string {
	escaped := make([]interface{}, len(args))
	for i, a := range args {
		escaped[i] = url.PathEscape(fmt.Sprint(a))
	}
	return "/businesses/" + url.PathEscape(g.config.BusinessID) + fmt.Sprintf(format, escaped...)
}

// GetTransaction fetches one transaction by id
func (g *Gateway) GetTransaction(ctx context.Context, id string) (*ports.RemoteTransaction, error) {
	resp, err := g.client.do(ctx, http.MethodGet, g.businessPath("/transactions/%s", id), nil)
	if err != nil {
		return nil, toRemoteError(err, domain.ErrRemoteFetch, "get transaction "+id)
	}
	return decodeTransaction(resp.Body, domain.ErrRemoteFetch, "get transaction "+id)
}

// RefundTransaction records a refund against a captured or sale transaction
func (g *Gateway) RefundTransaction(ctx context.Context, req *ports.RefundRequest) (*ports.RemoteTransaction, error) {
	provider := req.FundingSourceProvider
	if provider == "" {
		provider = domain.ProviderManual
	}

	body := refundRequest{
		ID:       req.ID,
		ParentID: req.ParentID,
		Action:   ports.RemoteActionRefund,
		Notes:    req.Notes,
		Amounts: amounts{
			Currency:          req.Currency,
			TransactionAmount: req.Amount,
			OrderAmount:       req.Amount,
		},
		FundingSource: fundingSource{
			Type: fundingSourceCustom,
			CustomFundingSource: &customFundingSource{
				Type:      customFundingSourceOther,
				Provider:  provider,
				AccountID: provider,
			},
		},
		Context: transactionContext{
			BusinessID:          g.config.BusinessID,
			Source:              contextSourceCloud,
			TransmissionAtLocal: g.now().UTC(),
		},
	}

	op := "refund transaction " + req.ParentID
	resp, err := g.client.do(ctx, http.MethodPost, g.businessPath("/transactions"), body)
	if err != nil {
		return nil, toRemoteError(err, domain.ErrRefundRemoteOrder, op)
	}
	return decodeTransaction(resp.Body, domain.ErrRefundRemoteOrder, op)
}

// VoidTransaction voids an authorization or a same-batch sale
func (g *Gateway) VoidTransaction(ctx context.Context, id string) (*ports.RemoteTransaction, error) {
	op := "void transaction " + id
	resp, err := g.client.do(ctx, http.MethodPost, g.businessPath("/transactions/%s/void", id), nil)
	if err != nil {
		return nil, toRemoteError(err, domain.ErrRefundRemoteOrder, op)
	}
	return decodeTransaction(resp.Body, domain.ErrRefundRemoteOrder, op)
}

// GetOrder fetches one order by id
func (g *Gateway) GetOrder(ctx context.Context, id string) (*ports.RemoteOrder, error) {
	op := "get order " + id
	resp, err := g.client.do(ctx, http.MethodGet, g.businessPath("/orders/%s", id), nil)
	if err != nil {
		return nil, toRemoteError(err, domain.ErrRemoteFetch, op)
	}

	var o order
	if err := json.Unmarshal(resp.Body, &o); err != nil {
		return nil, domain.NewRemoteError(domain.ErrRemoteFetch, op, resp.StatusCode, "", "malformed order: "+err.Error())
	}
	return &ports.RemoteOrder{ID: o.ID, Status: o.Statuses.Status, Raw: json.RawMessage(resp.Body)}, nil
}

// CompleteOrder closes an order; fails with ITEMS_NOT_FULFILLED while items are open
func (g *Gateway) CompleteOrder(ctx context.Context, id string) error {
	_, err := g.client.do(ctx, http.MethodPost, g.businessPath("/orders/%s/complete", id), nil)
	if err != nil {
		return toRemoteError(err, domain.ErrCompleteRemoteOrder, "complete order "+id)
	}
	return nil
}

// ForceCompleteOrder closes an order regardless of item fulfillment
func (g *Gateway) ForceCompleteOrder(ctx context.Context, id string) error {
	_, err := g.client.do(ctx, http.MethodPost, g.businessPath("/orders/%s/forceComplete", id), nil)
	if err != nil {
		return toRemoteError(err, domain.ErrCompleteRemoteOrder, "force complete order "+id)
	}
	return nil
}

// CancelOrder cancels an order
func (g *Gateway) CancelOrder(ctx context.Context, id string) error {
	_, err := g.client.do(ctx, http.MethodPost, g.businessPath("/orders/%s/cancel", id), nil)
	if err != nil {
		return toRemoteError(err, domain.ErrCancelRemoteOrder, "cancel order "+id)
	}
	return nil
}

func toRemoteError(err error, kind error, op string) error {
	var apiErr *pkgerrors.APIError
	if !errors.As(err, &apiErr) {
		return domain.NewRemoteError(kind, op, 0, "", err.Error())
	}
	// no response: timeout, network failure or open breaker
	if apiErr.StatusCode == 0 {
		return domain.NewRemoteError(kind, op, 0, string(apiErr.Category), apiErr.Error())
	}
	return domain.NewRemoteError(kind, op, apiErr.StatusCode, apiErr.Code, apiErr.Message)
}

func decodeTransaction(body []byte, kind error, op string) (*ports.RemoteTransaction, error) {
	var t transaction
	if err := json.Unmarshal(body, &t); err != nil {
		return nil, domain.NewRemoteError(kind, op, http.StatusOK, "", "malformed transaction: "+err.Error())
	}
	return toRemoteTransaction(&t), nil
}

func toRemoteTransaction(t *transaction) *ports.RemoteTransaction {
	rt := &ports.RemoteTransaction{
		CreatedAt:         t.CreatedAt,
		ID:                t.ID,
		ParentID:          t.ParentID,
		Action:            t.Action,
		Status:            t.Status,
		Currency:          t.Amounts.Currency,
		Notes:             t.Notes,
		TransactionAmount: t.Amounts.TransactionAmount,
		TipAmount:         t.Amounts.TipAmount,
		CashbackAmount:    t.Amounts.CashbackAmount,
		Voided:            t.Voided,
	}

	for _, ref := range t.References {
		if ref.Type == referenceTypePoyntOrder {
			rt.OrderID = ref.ID
			break
		}
	}

	if pr := t.ProcessorResponse; pr != nil {
		rt.ProcessorStatus = pr.Status
		rt.ProcessorStatusCode = pr.StatusCode
		rt.ProcessorMessage = pr.StatusMessage
	}

	if fs := t.FundingSource; fs != nil && fs.Type == fundingSourceCustom && fs.CustomFundingSource != nil {
		rt.FundingSourceProvider = fs.CustomFundingSource.Provider
	}

	for _, l := range t.Links {
		rt.Links = append(rt.Links, ports.Link{Href: l.Href, Rel: l.Rel, Method: l.Method})
	}
	return rt
}
