package sessions

// HasRole is false when signed out
func (s *Store) HasRole(role string) bool {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.user.HasRole(role)
}

func (s *Store) IsAdmin() bool {
	return s.HasRole(RoleAdmin)
}

func (s *Store) IsEmployee() bool {
	return s.HasRole(RoleEmployee)
}

func (s *Store) IsCafeteriaStaff() bool {
	return s.HasRole(RoleCafeteriaStaff)
}

// IsPrivileged is true for admins and cafeteria staff
func (s *Store) IsPrivileged() bool {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.stateLocked().IsPrivileged()
}
