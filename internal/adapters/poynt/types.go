package poynt

import "time"

// Wire types for the subset of the Poynt REST API used here.

type apiError struct {
	Code             string `json:"code"`
	Message          string `json:"message"`
	DeveloperMessage string `json:"developerMessage"`
	HTTPStatus       int    `json:"httpStatus"`
}

type amounts struct {
	Currency          string `json:"currency"`
	TransactionAmount int64  `json:"transactionAmount"`
	OrderAmount       int64  `json:"orderAmount,omitempty"`
	TipAmount         int64  `json:"tipAmount,omitempty"`
	CashbackAmount    int64  `json:"cashbackAmount,omitempty"`
}

type processorResponse struct {
	Status        string `json:"status"`
	StatusCode    string `json:"statusCode"`
	StatusMessage string `json:"statusMessage"`
	ApprovalCode  string `json:"approvalCode,omitempty"`
}

type reference struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	CustomType string `json:"customType,omitempty"`
}

type link struct {
	Href   string `json:"href"`
	Rel    string `json:"rel"`
	Method string `json:"method,omitempty"`
}

type customFundingSource struct {
	Type        string `json:"type"`
	Provider    string `json:"provider"`
	AccountID   string `json:"accountId"`
	Processor   string `json:"processor,omitempty"`
	Description string `json:"description,omitempty"`
}

type fundingSource struct {
	CustomFundingSource *customFundingSource `json:"customFundingSource,omitempty"`
	Type                string               `json:"type"`
}

type transaction struct {
	CreatedAt         time.Time          `json:"createdAt"`
	ProcessorResponse *processorResponse `json:"processorResponse,omitempty"`
	FundingSource     *fundingSource     `json:"fundingSource,omitempty"`
	ID                string             `json:"id"`
	ParentID          string             `json:"parentId,omitempty"`
	Action            string             `json:"action"`
	Status            string             `json:"status"`
	Notes             string             `json:"notes,omitempty"`
	References        []reference        `json:"references,omitempty"`
	Links             []link             `json:"links,omitempty"`
	Amounts           amounts            `json:"amounts"`
	Voided            bool               `json:"voided,omitempty"`
}

type transactionContext struct {
	BusinessID          string    `json:"businessId"`
	Source              string    `json:"source"`
	TransmissionAtLocal time.Time `json:"transmissionAtLocal"`
}

type refundRequest struct {
	Context       transactionContext `json:"context"`
	FundingSource fundingSource      `json:"fundingSource"`
	ID            string             `json:"id"`
	ParentID      string             `json:"parentId"`
	Action        string             `json:"action"`
	Notes         string             `json:"notes,omitempty"`
	Amounts       amounts            `json:"amounts"`
}

type orderStatuses struct {
	Status            string `json:"status"`
	FulfillmentStatus string `json:"fulfillmentStatus,omitempty"`
}

type order struct {
	ID       string        `json:"id"`
	Statuses orderStatuses `json:"statuses"`
}

type tokenResponse struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType"`
	ExpiresIn   int64  `json:"expiresIn"`
}

const (
	referenceTypePoyntOrder   = "POYNT_ORDER"
	fundingSourceCustom       = "CUSTOM_FUNDING_SOURCE"
	customFundingSourceOther  = "OTHER"
	processorStatusSuccessful = "Successful"
)
