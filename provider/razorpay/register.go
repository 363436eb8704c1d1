package razorpay

import "github.com/Sammk21/medusa-admin/provider"

// Register Razorpay provider with the gateway registry
func init() {
	provider.Register(providerName, NewProvider)
}
