package authz

// Permission names a single capability a role can hold. Tokens are stable
// identifiers, stored in config files and audit logs; renaming one is a
// breaking change.
type Permission string

// The closed permission set. Grouped by the surface the token protects.
const (
	// Catalog.
	PermViewProducts     Permission = "view_products"
	PermCreateProduct    Permission = "create_product"
	PermEditProduct      Permission = "edit_product"
	PermDeleteProduct    Permission = "delete_product"
	PermManageCategories Permission = "manage_categories"

	// Shopping.
	PermViewCart  Permission = "view_cart"
	PermAddToCart Permission = "add_to_cart"
	PermCheckout  Permission = "checkout"

	// Orders.
	PermViewOwnOrders     Permission = "view_own_orders"
	PermViewAllOrders     Permission = "view_all_orders"
	PermCreateOrder       Permission = "create_order"
	PermUpdateOrderStatus Permission = "update_order_status"

	// Back office.
	PermViewDashboard    Permission = "view_dashboard"
	PermManageUsers      Permission = "manage_users"
	PermAccessAdminPanel Permission = "access_admin_panel"
	PermViewAuditLogs    Permission = "view_audit_logs"
)

// Permissions returns the closed set of known permission tokens.
func Permissions() []Permission {
	return []Permission{
		PermViewProducts,
		PermCreateProduct,
		PermEditProduct,
		PermDeleteProduct,
		PermManageCategories,
		PermViewCart,
		PermAddToCart,
		PermCheckout,
		PermViewOwnOrders,
		PermViewAllOrders,
		PermCreateOrder,
		PermUpdateOrderStatus,
		PermViewDashboard,
		PermManageUsers,
		PermAccessAdminPanel,
		PermViewAuditLogs,
	}
}

// KnownPermission reports whether the token is part of the closed set.
func KnownPermission(p Permission) bool {
	for _, known := range Permissions() {
		if p == known {
			return true
		}
	}
	return false
}
