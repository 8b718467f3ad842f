package models

// All lists the tables managed by AutoMigrate, parents first.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Workspace{},
		&WorkspaceMember{},
		&TeamMember{},
		&Service{},
		&ServiceVariant{},
		&Appointment{},
		&SubscriptionPlan{},
		&Subscription{},
		&WorkspaceInvitation{},
		&WorkspaceJoinRequest{},
		&WebhookEvent{},
		&NotificationLog{},
	}
}
