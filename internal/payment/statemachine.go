package payment

import "github.com/oneroskilfu/ireva-app-sub001/internal/core/datamodel/payment"

// Source identifies who drives a transition.
type Source string

const (
	SourceWebhook Source = "webhook"
	SourceAdmin   Source = "admin"
	SourceSystem  Source = "system"
)

var providerTransitions = map[payment.Status][]payment.Status{
	payment.StatusPending: {
		payment.StatusConfirming,
		payment.StatusPaid,
		payment.StatusConfirmed,
		payment.StatusExpired,
		payment.StatusCanceled,
		payment.StatusInvalid,
		payment.StatusFailed,
	},
	payment.StatusConfirming: {
		payment.StatusPaid,
		payment.StatusConfirmed,
	},
}

// CanTransition reports whether source may move a payment from one status to another.
// Refunds are admin-only; the system source may only expire pending payments.
func CanTransition(from, to payment.Status, source Source) bool {
	switch source {
	case SourceAdmin:
		return to == payment.StatusRefunded && from.IsCreditable()
	case SourceSystem:
		return from == payment.StatusPending && to == payment.StatusExpired
	case SourceWebhook:
		for _, allowed := range providerTransitions[from] {
			if allowed == to {
				return true
			}
		}
	}
	return false
}
