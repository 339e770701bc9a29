package domain

import "fmt"

// Order and refund metadata keys.
const (
	MetaPoyntPaymentRemoteID = "_poynt_payment_remoteId"
	MetaPoyntCaptureRemoteID = "_poynt_capture_remoteId"
	MetaPoyntRefundRemoteID  = "_poynt_refund_remoteId"
	MetaPoyntVoidRemoteID    = "_poynt_void_remoteId"
	MetaPoyntOrderRemoteID   = "_poynt_order_remoteId"

	MetaIsCaptured         = "_mwc_payments_is_captured"
	MetaStatusBeforeRefund = "_mwc_payments_status_before_refund"
	MetaProviderName       = "_mwc_transaction_provider_name"

	MetaRefundFundingSourceProvider = "_poynt_refund_funding_source_provider"
	MetaRemoteOrderSnapshot         = "_poynt_order_snapshot"
)

const (
	metaYes = "yes"
	metaNo  = "no"
)

// RemoteIDMetaKey returns the _{provider}_{kind}_remoteId slot key.
func RemoteIDMetaKey(provider string, kind TransactionKind) string {
	return fmt.Sprintf("_%s_%s_remoteId", provider, kind)
}

// TransactionMetaKey returns the slot holding the last-written transaction record of a kind.
func TransactionMetaKey(provider string, kind TransactionKind) string {
	return fmt.Sprintf("_%s_%s_transaction", provider, kind)
}

// BoolMeta renders a flag the way the host stores it.
func BoolMeta(v bool) string {
	if v {
		return metaYes
	}
	return metaNo
}
