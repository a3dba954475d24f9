package entity

// AllModels tables owned by the service, in migration order
func AllModels() []interface{} {
	return []interface{}{
		&Employee{},
		&Equipment{},
		&Manager{},
		&Checklist{},
		&ApprovalRecord{},
	}
}
