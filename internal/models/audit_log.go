package models

// Audit actions.
const (
	AuditActionRegister       = "REGISTER"
	AuditActionLogin          = "LOGIN"
	AuditActionCreateExpense  = "CREATE_EXPENSE"
	AuditActionCreateCategory = "CREATE_CATEGORY"
	AuditActionCreateBudget   = "CREATE_BUDGET"
	AuditActionUpdateBudget   = "UPDATE_BUDGET"
	AuditActionCloseCycle     = "CLOSE_BUDGET_CYCLE"
)

// AuditLog records sensitive user operations and budget rollovers.
type AuditLog struct {
	Base
	UserID       string `gorm:"type:uuid;not null;index" json:"user_id"`
	Action       string `gorm:"not null" json:"action"`
	ResourceType string `gorm:"not null" json:"resource_type"`
	ResourceID   string `json:"resource_id"`
	IPAddress    string `json:"ip_address"`
	Changes      string `json:"changes,omitempty"`
}
