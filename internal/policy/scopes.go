package policy

import "gorm.io/gorm"

// The scopes below restrict a query to the rows an actor may see.
// They are applied inside every list, lookup, update and delete so that
// a row outside the visible set is indistinguishable from a missing one.
// A nil actor sees nothing; a privileged actor sees everything.

// VisibleClients keeps clients owned by the actor.
func VisibleClients(a *Actor) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch {
		case a == nil:
			return db.Where("1 = 0")
		case a.Privileged:
			return db
		}
		return db.Where("clients.owner_id = ?", a.UserID)
	}
}

// VisibleLeads keeps leads assigned to the actor or attached to a client the actor owns.
func VisibleLeads(a *Actor) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch {
		case a == nil:
			return db.Where("1 = 0")
		case a.Privileged:
			return db
		}
		return db.Where(
			"(leads.assigned_to_id = ? OR leads.client_id IN (SELECT id FROM clients WHERE owner_id = ?))",
			a.UserID, a.UserID,
		)
	}
}

// VisibleInteractions keeps interactions the actor wrote or recorded on a client the actor owns.
func VisibleInteractions(a *Actor) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch {
		case a == nil:
			return db.Where("1 = 0")
		case a.Privileged:
			return db
		}
		return db.Where(
			"(interactions.author_id = ? OR interactions.client_id IN (SELECT id FROM clients WHERE owner_id = ?))",
			a.UserID, a.UserID,
		)
	}
}
