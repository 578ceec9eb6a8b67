package model

// Role codes
const (
	RoleSuperadmin = "superadmin"
	RoleAdmin      = "admin"
	RolePOS        = "pos"
)

// Capability codes checked by middleware.RequireCapability
const (
	CapProductView    = "product:view"
	CapProductCreate  = "product:create"
	CapProductUpdate  = "product:update"
	CapPurchaseCreate = "purchase:create"
	CapSaleCreate     = "sale:create"
	CapSaleView       = "sale:view"
	CapExpenseView    = "expense:view"
	CapExpenseCreate  = "expense:create"
	CapExpenseUpdate  = "expense:update"
	CapExpenseApprove = "expense:approve"
	CapCustomerView   = "customer:view"
	CapCustomerManage = "customer:manage"
	CapDashboardView  = "dashboard:view"
	CapUserManage     = "user:manage"
	CapBillingView    = "billing:view"
	CapTenantManage   = "tenant:manage"
	CapBillingManage  = "billing:manage"
	// CapBypassGate exempts the holder from tenant scoping and the suspension gate.
	CapBypassGate = "tenant:bypass_gate"
)

var adminCapabilities = []string{
	CapProductView, CapProductCreate, CapProductUpdate, CapPurchaseCreate,
	CapSaleCreate, CapSaleView,
	CapExpenseView, CapExpenseCreate, CapExpenseUpdate, CapExpenseApprove,
	CapCustomerView, CapCustomerManage,
	CapDashboardView, CapUserManage, CapBillingView,
}

var posCapabilities = []string{
	CapProductView, CapSaleCreate, CapSaleView,
	CapExpenseView, CapExpenseCreate,
	CapCustomerView, CapCustomerManage,
}

// RoleCapabilities maps every role to the capabilities it grants.
var RoleCapabilities = map[string][]string{
	RoleSuperadmin: append(append([]string{}, adminCapabilities...), CapTenantManage, CapBillingManage, CapBypassGate),
	RoleAdmin:      adminCapabilities,
	RolePOS:        posCapabilities,
}

func IsValidRole(role string) bool {
	_, ok := RoleCapabilities[role]
	return ok
}

// HasCapability reports whether role grants capability.
func HasCapability(role, capability string) bool {
	for _, c := range RoleCapabilities[role] {
		if c == capability {
			return true
		}
	}
	return false
}
