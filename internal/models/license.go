package models

// License is a key granting software use, bound to at most one device.
// LicenseKey, Email and OrderID never change after issuance; DeviceID is
// written at most once.
type License struct {
	BaseModel

	LicenseKey string  `json:"license_key" gorm:"size:32;uniqueIndex;not null"`
	Email      string  `json:"email" gorm:"size:255;not null;index"`
	DeviceID   *string `json:"device_id,omitempty" gorm:"size:255"`

	// No gorm default here: a default:true tag would turn an explicit false into true on insert.
	IsActive bool `json:"is_active" gorm:"not null"`

	// Back-reference to the order that produced this license. The unique
	// index keeps issuance at one license per order.
	OrderID *uint `json:"order_id,omitempty" gorm:"uniqueIndex"`
}

// TableName overrides the singular naming strategy
func (License) TableName() string {
	return "licenses"
}

// Bound reports whether a device has been bound to the license.
func (l *License) Bound() bool {
	return l.DeviceID != nil && *l.DeviceID != ""
}

// BoundDevice returns the bound device id, or "" when unbound.
func (l *License) BoundDevice() string {
	if !l.Bound() {
		return ""
	}
	return *l.DeviceID
}
