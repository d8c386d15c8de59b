package models

type UserRole string
type NotificationType string

const (
	UserRoleClient    UserRole = "client"
	UserRoleCraftsman UserRole = "craftsman"
	UserRoleAdmin     UserRole = "admin"
)

const (
	NotificationNewJob             NotificationType = "new_job"
	NotificationNewQuote           NotificationType = "new_quote"
	NotificationQuoteAccepted      NotificationType = "quote_accepted"
	NotificationQuoteRejected      NotificationType = "quote_rejected"
	NotificationJobInvitation      NotificationType = "job_invitation"
	NotificationInvitationResponse NotificationType = "invitation_response"
	NotificationNewMessage         NotificationType = "new_message"
	NotificationNewReview          NotificationType = "new_review"
	NotificationDisputeUpdate      NotificationType = "dispute_update"
)

// IsValid проверяет, что роль известна
func (r UserRole) IsValid() bool {
	switch r {
	case UserRoleClient, UserRoleCraftsman, UserRoleAdmin:
		return true
	}
	return false
}
