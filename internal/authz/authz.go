// Package authz holds the role set and the single capability table every
// route is checked against.
package authz

// Role is the closed set of account roles.
type Role string

const (
	RoleClient     Role = "client"
	RolePharmacist Role = "pharmacist"
	RoleAdmin      Role = "admin"
)

// ParseRole validates a raw role string.
func ParseRole(s string) (Role, bool) {
	switch r := Role(s); r {
	case RoleClient, RolePharmacist, RoleAdmin:
		return r, true
	}
	return "", false
}

// IsStaff reports whether the role works behind the counter.
func (r Role) IsStaff() bool { return r == RolePharmacist || r == RoleAdmin }

// Action names a guarded capability.
type Action string

const (
	ProductWrite  Action = "product:write"
	ProductExport Action = "product:export"
	StockRead     Action = "stock:read"
	StockWrite    Action = "stock:write"

	CategoryWrite  Action = "category:write"
	SupplierManage Action = "supplier:manage"

	PrescriptionSubmit Action = "prescription:submit"
	PrescriptionOwn    Action = "prescription:own"
	PrescriptionReview Action = "prescription:review"
	PrescriptionRead   Action = "prescription:read"

	SaleRecord Action = "sale:record"
	SaleRead   Action = "sale:read"

	OrderPlace  Action = "order:place"
	OrderManage Action = "order:manage"
	OrderRead   Action = "order:read"

	PersonnelManage Action = "personnel:manage"
	JobsInspect     Action = "jobs:inspect"
	Profile         Action = "profile"
	Chat            Action = "chat"
	Realtime        Action = "realtime"
)

var capabilities = map[Action][]Role{
	ProductWrite:  {RoleAdmin},
	ProductExport: {RoleAdmin},
	StockRead:     {RolePharmacist, RoleAdmin},
	StockWrite:    {RolePharmacist, RoleAdmin},

	CategoryWrite:  {RoleAdmin},
	SupplierManage: {RoleAdmin},

	PrescriptionSubmit: {RoleClient},
	PrescriptionOwn:    {RoleClient},
	PrescriptionReview: {RolePharmacist, RoleAdmin},
	// ownership is checked by the service
	PrescriptionRead: {RoleClient, RolePharmacist, RoleAdmin},

	SaleRecord: {RolePharmacist, RoleAdmin},
	SaleRead:   {RolePharmacist, RoleAdmin},

	OrderPlace:  {RoleClient},
	OrderManage: {RolePharmacist, RoleAdmin},
	OrderRead:   {RoleClient, RolePharmacist, RoleAdmin},

	PersonnelManage: {RoleAdmin},
	JobsInspect:     {RoleAdmin},
	Profile:         {RoleClient, RolePharmacist, RoleAdmin},
	Chat:            {RoleClient, RolePharmacist, RoleAdmin},
	Realtime:        {RoleClient, RolePharmacist, RoleAdmin},
}

// Allowed reports whether role may perform action. Unknown actions are denied.
func Allowed(role Role, action Action) bool {
	for _, r := range capabilities[action] {
		if r == role {
			return true
		}
	}
	return false
}
