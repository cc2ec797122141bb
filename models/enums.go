package models

type FeeFrequency string

const (
	FeeFrequencyOneTime   FeeFrequency = "ONE_TIME"
	FeeFrequencyMonthly   FeeFrequency = "MONTHLY"
	FeeFrequencyQuarterly FeeFrequency = "QUARTERLY"
	FeeFrequencyAnnual    FeeFrequency = "ANNUAL"
)

func (f FeeFrequency) Valid() bool {
	switch f {
	case FeeFrequencyOneTime, FeeFrequencyMonthly, FeeFrequencyQuarterly, FeeFrequencyAnnual:
		return true
	}
	return false
}

type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "PENDING"
	InvoiceStatusPartial InvoiceStatus = "PARTIAL"
	InvoiceStatusPaid    InvoiceStatus = "PAID"
	InvoiceStatusOverdue InvoiceStatus = "OVERDUE"
)

func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceStatusPending, InvoiceStatusPartial, InvoiceStatusPaid, InvoiceStatusOverdue:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "CASH"
	PaymentMethodCard         PaymentMethod = "CARD"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodOnline       PaymentMethod = "ONLINE"
	PaymentMethodCheque       PaymentMethod = "CHEQUE"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodBankTransfer, PaymentMethodOnline, PaymentMethodCheque:
		return true
	}
	return false
}

type SubscriptionStatus string

const (
	SubscriptionStatusActive  SubscriptionStatus = "ACTIVE"
	SubscriptionStatusDueSoon SubscriptionStatus = "DUE_SOON"
	SubscriptionStatusExpired SubscriptionStatus = "EXPIRED"
	SubscriptionStatusPending SubscriptionStatus = "PENDING"
)

type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "PRESENT"
	AttendanceStatusAbsent  AttendanceStatus = "ABSENT"
	AttendanceStatusLate    AttendanceStatus = "LATE"
	AttendanceStatusExcused AttendanceStatus = "EXCUSED"
)

func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusAbsent, AttendanceStatusLate, AttendanceStatusExcused:
		return true
	}
	return false
}

type LeaveStatus string

const (
	LeaveStatusPending  LeaveStatus = "PENDING"
	LeaveStatusApproved LeaveStatus = "APPROVED"
	LeaveStatusRejected LeaveStatus = "REJECTED"
)

type AnnouncementAudience string

const (
	AnnouncementAudienceAll      AnnouncementAudience = "ALL"
	AnnouncementAudienceTeachers AnnouncementAudience = "TEACHERS"
	AnnouncementAudienceParents  AnnouncementAudience = "PARENTS"
)

func (a AnnouncementAudience) Valid() bool {
	switch a {
	case AnnouncementAudienceAll, AnnouncementAudienceTeachers, AnnouncementAudienceParents:
		return true
	}
	return false
}

type UserRole string

const (
	// UserRolePlatformAdmin is seeded via cmd/seed-admin only; it is not a
	// valid role for school users created through the API.
	UserRolePlatformAdmin UserRole = "platform-admin"

	UserRoleAdmin      UserRole = "admin"
	UserRoleAccountant UserRole = "accountant"
	UserRoleTeacher    UserRole = "teacher"
	UserRoleParent     UserRole = "parent"
)

func (r UserRole) Valid() bool {
	switch r {
	case UserRoleAdmin, UserRoleAccountant, UserRoleTeacher, UserRoleParent:
		return true
	}
	return false
}

// NotificationReferenceType identifies what an outbox record points at.
type NotificationReferenceType string

const (
	NotificationReferenceTypeFeeInvoice   NotificationReferenceType = "FeeInvoice"
	NotificationReferenceTypeFeePayment   NotificationReferenceType = "FeePayment"
	NotificationReferenceTypeAnnouncement NotificationReferenceType = "Announcement"
)

type NotificationAction string

const (
	NotificationActionCreate NotificationAction = "Create"
)

type OutboxPublishStatus string

const (
	OutboxPublishStatusPending    OutboxPublishStatus = "PENDING"
	OutboxPublishStatusProcessing OutboxPublishStatus = "PROCESSING"
	OutboxPublishStatusSent       OutboxPublishStatus = "SENT"
	OutboxPublishStatusFailed     OutboxPublishStatus = "FAILED"
	OutboxPublishStatusDead       OutboxPublishStatus = "DEAD"
)
