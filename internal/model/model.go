// Package model holds value snapshots of the entities served by the
// Easy Sport Book backend. The frontend never owns authoritative state;
// everything here is a read-only view refreshed by full refetch.
package model

import "time"

// BookingStatus is the lifecycle status of a booking. Transitions happen
// server-side; the frontend only triggers them and refetches.
type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusCancelled BookingStatus = "cancelled"
	StatusCompleted BookingStatus = "completed"
	StatusNoShow    BookingStatus = "no_show"
	StatusRejected  BookingStatus = "rejected"
)

// Theme carries per-tenant branding.
type Theme struct {
	LogoURL        string `json:"logoUrl,omitempty"`
	PrimaryColor   string `json:"primaryColor,omitempty"`
	SecondaryColor string `json:"secondaryColor,omitempty"`
	AccentColor    string `json:"accentColor,omitempty"`
}

// Tenant is the top organizational level.
type Tenant struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Slug   string `json:"slug,omitempty"`
	Theme  Theme  `json:"theme"`
	Active bool   `json:"active"`
}

// Branch is a physical location belonging to a tenant.
type Branch struct {
	ID        string   `json:"id"`
	TenantID  string   `json:"tenantId"`
	Name      string   `json:"name"`
	Address   string   `json:"address,omitempty"`
	Phone     string   `json:"phone,omitempty"`
	Amenities []string `json:"amenities,omitempty"` // parking, wifi, showers, ...
	Active    bool     `json:"active"`
}

// Resource is a bookable facility unit (a court).
type Resource struct {
	ID          string   `json:"id"`
	BranchID    string   `json:"branchId"`
	Name        string   `json:"name"`
	Sport       string   `json:"sport"`
	SlotMinutes int      `json:"slotMinutes"`
	HourlyPrice float64  `json:"hourlyPrice"`
	Currency    string   `json:"currency"`
	Active      bool     `json:"active"`
	Images      []string `json:"images,omitempty"`
}

// BranchHours is one weekly-hours record per (branch, dayOfWeek).
// DayOfWeek follows time.Weekday numbering: 0 = Sunday.
type BranchHours struct {
	BranchID  string `json:"branchId"`
	DayOfWeek int    `json:"dayOfWeek"`
	OpenTime  string `json:"openTime"`  // "HH:MM"
	CloseTime string `json:"closeTime"` // "HH:MM"
	IsClosed  bool   `json:"isClosed"`
}

// BlockedSlot is an admin-declared unavailable interval. It is created and
// deleted, never updated. An empty ResourceID means the whole branch.
type BlockedSlot struct {
	ID         string `json:"id"`
	BranchID   string `json:"branchId"`
	ResourceID string `json:"resourceId,omitempty"`
	Date       string `json:"date"`      // "2006-01-02"
	StartTime  string `json:"startTime"` // "HH:MM"
	EndTime    string `json:"endTime"`   // "HH:MM"
	Reason     string `json:"reason,omitempty"`
}

// Booking is a reservation snapshot.
type Booking struct {
	ID            string        `json:"id"`
	ResourceID    string        `json:"resourceId"`
	UserID        string        `json:"userId,omitempty"`
	GuestName     string        `json:"guestName,omitempty"`
	StartAt       time.Time     `json:"startAt"`
	EndAt         time.Time     `json:"endAt"`
	Status        BookingStatus `json:"status"`
	OriginalPrice float64       `json:"originalPrice"`
	TotalPrice    float64       `json:"totalPrice"`
	DiscountCode  string        `json:"discountCode,omitempty"`
	Notes         string        `json:"notes,omitempty"`
}

// Overlaps reports whether the booking intersects the half-open interval
// [start, end).
func (b Booking) Overlaps(start, end time.Time) bool {
	return b.StartAt.Before(end) && start.Before(b.EndAt)
}

// Covers reports whether a blocked slot applies to the given local date and
// covers a slot starting at startTime ("HH:MM"). The end boundary is
// exclusive.
func (s BlockedSlot) Covers(date string, startTime string) bool {
	return s.Date == date && s.StartTime <= startTime && startTime < s.EndTime
}

// DiscountType is how the discount value is applied.
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// DiscountCondition distinguishes promo codes from auto-applied time rules.
type DiscountCondition string

const (
	ConditionPromoCode DiscountCondition = "promo_code"
	ConditionTimeBased DiscountCondition = "time_based"
)

// Discount is a promotional rule. Time-based discounts carry an optional
// day-of-week set and a "HH:MM" window; either scope field may be empty.
type Discount struct {
	ID         string            `json:"id"`
	Type       DiscountType      `json:"type"`
	Value      float64           `json:"value"`
	Condition  DiscountCondition `json:"conditionType"`
	Code       string            `json:"code,omitempty"`
	DaysOfWeek []int             `json:"daysOfWeek,omitempty"`
	StartTime  string            `json:"startTime,omitempty"`
	EndTime    string            `json:"endTime,omitempty"`
	BranchID   string            `json:"branchId,omitempty"`
	ResourceID string            `json:"resourceId,omitempty"`
	Active     bool              `json:"active"`
}

// AppliesAt reports whether a time-based discount covers a slot starting at
// startTime on the given weekday. The time window is end-exclusive; an
// empty DaysOfWeek set means every day.
func (d Discount) AppliesAt(weekday int, startTime string) bool {
	if d.Condition != ConditionTimeBased || !d.Active {
		return false
	}
	if len(d.DaysOfWeek) > 0 {
		found := false
		for _, wd := range d.DaysOfWeek {
			if wd == weekday {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if d.StartTime != "" && startTime < d.StartTime {
		return false
	}
	if d.EndTime != "" && startTime >= d.EndTime {
		return false
	}
	return true
}

// RoleName is a named admin tier.
type RoleName string

const (
	RoleSuperAdmin  RoleName = "super_admin"
	RoleTenantAdmin RoleName = "tenant_admin"
	RoleBranchAdmin RoleName = "branch_admin"
	RoleUser        RoleName = "user"
)

// Role is one role assignment; scope is global, per-tenant or per-branch.
type Role struct {
	Name     RoleName `json:"name"`
	TenantID string   `json:"tenantId,omitempty"`
	BranchID string   `json:"branchId,omitempty"`
}

// UserProfile is the authenticated user snapshot. Roles drive only which
// admin menus are rendered; authorization is enforced server-side.
type UserProfile struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Verified bool   `json:"verified"`
	Roles    []Role `json:"roles,omitempty"`
}

// IsSuperAdmin reports whether the user has a global super-admin role.
func (u UserProfile) IsSuperAdmin() bool {
	for _, r := range u.Roles {
		if r.Name == RoleSuperAdmin {
			return true
		}
	}
	return false
}

// CanManageTenant reports whether the user may see tenant-admin menus.
func (u UserProfile) CanManageTenant(tenantID string) bool {
	for _, r := range u.Roles {
		if r.Name == RoleSuperAdmin {
			return true
		}
		if r.Name == RoleTenantAdmin && r.TenantID == tenantID {
			return true
		}
	}
	return false
}

// CanManageBranch reports whether the user may see branch-admin menus.
func (u UserProfile) CanManageBranch(tenantID, branchID string) bool {
	if u.CanManageTenant(tenantID) {
		return true
	}
	for _, r := range u.Roles {
		if r.Name == RoleBranchAdmin && r.BranchID == branchID {
			return true
		}
	}
	return false
}
