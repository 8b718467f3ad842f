package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"bookingdesk-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// memDB is a process-local stand-in for Postgres. It enforces the same
// unique keys and scoping rules the schema does; rows are copied on the way
// in and out so callers never share memory with the store.
type memDB struct {
	mu sync.RWMutex

	users         map[uuid.UUID]models.User
	workspaces    map[uuid.UUID]models.Workspace
	members       map[uuid.UUID]models.WorkspaceMember
	team          map[uuid.UUID]models.TeamMember
	services      map[uuid.UUID]models.Service
	variants      map[uuid.UUID]models.ServiceVariant
	appointments  map[uuid.UUID]models.Appointment
	plans         map[string]models.SubscriptionPlan
	subscriptions map[uuid.UUID]models.Subscription
	invitations   map[uuid.UUID]models.WorkspaceInvitation
	joinRequests  map[uuid.UUID]models.WorkspaceJoinRequest
	events        map[string]models.WebhookEvent
	notifications []models.NotificationLog
}

// NewMemoryStore returns repositories backed by process memory. It is used
// for local runs without a database and by the HTTP tests.
func NewMemoryStore() *Store {
	db := &memDB{
		users:         map[uuid.UUID]models.User{},
		workspaces:    map[uuid.UUID]models.Workspace{},
		members:       map[uuid.UUID]models.WorkspaceMember{},
		team:          map[uuid.UUID]models.TeamMember{},
		services:      map[uuid.UUID]models.Service{},
		variants:      map[uuid.UUID]models.ServiceVariant{},
		appointments:  map[uuid.UUID]models.Appointment{},
		plans:         map[string]models.SubscriptionPlan{},
		subscriptions: map[uuid.UUID]models.Subscription{},
		invitations:   map[uuid.UUID]models.WorkspaceInvitation{},
		joinRequests:  map[uuid.UUID]models.WorkspaceJoinRequest{},
		events:        map[string]models.WebhookEvent{},
	}
	return &Store{
		Users:         &memUsers{db},
		Workspaces:    &memWorkspaces{db},
		Members:       &memMembers{db},
		Team:          &memTeam{db},
		Services:      &memServices{db},
		Appointments:  &memAppointments{db},
		Billing:       &memBilling{db},
		Invitations:   &memInvitations{db},
		Notifications: &memNotifications{db},
	}
}

func stamp(b *models.Base) {
	now := time.Now().UTC()
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
}

func (db *memDB) liveWorkspace(id uuid.UUID) (models.Workspace, bool) {
	ws, ok := db.workspaces[id]
	if !ok || ws.DeletedAt.Valid {
		return models.Workspace{}, false
	}
	return ws, true
}

// ---- users

type memUsers struct{ db *memDB }

func (r *memUsers) Create(_ context.Context, u *models.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, existing := range r.db.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return ErrDuplicate
		}
	}
	stamp(&u.Base)
	r.db.users[u.ID] = *u
	return nil
}

func (r *memUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	for _, u := range r.db.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memUsers) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	u, ok := r.db.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (r *memUsers) Update(_ context.Context, u *models.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.users[u.ID]; !ok {
		return ErrNotFound
	}
	for id, existing := range r.db.users {
		if id != u.ID && strings.EqualFold(existing.Email, u.Email) {
			return ErrDuplicate
		}
	}
	stamp(&u.Base)
	r.db.users[u.ID] = *u
	return nil
}

func (r *memUsers) TouchLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	if !ok {
		return nil
	}
	u.LastLogin = &at
	r.db.users[id] = u
	return nil
}

// ---- workspaces

type memWorkspaces struct{ db *memDB }

func (r *memWorkspaces) CreateWithOwner(_ context.Context, ws *models.Workspace, ownerID uuid.UUID, sub *models.Subscription) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, existing := range r.db.workspaces {
		if existing.Slug == ws.Slug {
			return ErrDuplicate
		}
	}
	stamp(&ws.Base)
	r.db.workspaces[ws.ID] = *ws

	owner := models.WorkspaceMember{WorkspaceID: ws.ID, UserID: ownerID, Role: models.RoleOwner}
	stamp(&owner.Base)
	r.db.members[owner.ID] = owner

	if sub != nil {
		sub.WorkspaceID = ws.ID
		stamp(&sub.Base)
		r.db.subscriptions[ws.ID] = *sub
	}
	return nil
}

func (r *memWorkspaces) FindByID(_ context.Context, id uuid.UUID) (*models.Workspace, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	ws, ok := r.db.liveWorkspace(id)
	if !ok {
		return nil, ErrNotFound
	}
	return &ws, nil
}

func (r *memWorkspaces) FindBySlug(_ context.Context, slug string) (*models.Workspace, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	for _, ws := range r.db.workspaces {
		if ws.Slug == slug && !ws.DeletedAt.Valid {
			return &ws, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memWorkspaces) Update(_ context.Context, ws *models.Workspace) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.liveWorkspace(ws.ID); !ok {
		return ErrNotFound
	}
	for id, existing := range r.db.workspaces {
		if id != ws.ID && existing.Slug == ws.Slug {
			return ErrDuplicate
		}
	}
	stamp(&ws.Base)
	r.db.workspaces[ws.ID] = *ws
	return nil
}

func (r *memWorkspaces) Delete(_ context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	ws, ok := r.db.liveWorkspace(id)
	if !ok {
		return ErrNotFound
	}
	ws.DeletedAt = gorm.DeletedAt{Time: time.Now().UTC(), Valid: true}
	r.db.workspaces[id] = ws
	return nil
}

// ---- members

type memMembers struct{ db *memDB }

func (r *memMembers) find(workspaceID, userID uuid.UUID) (models.WorkspaceMember, bool) {
	for _, m := range r.db.members {
		if m.WorkspaceID == workspaceID && m.UserID == userID {
			return m, true
		}
	}
	return models.WorkspaceMember{}, false
}

func (r *memMembers) FindMember(_ context.Context, workspaceID, userID uuid.UUID) (*models.WorkspaceMember, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	if _, ok := r.db.liveWorkspace(workspaceID); !ok {
		return nil, ErrNotFound
	}
	m, ok := r.find(workspaceID, userID)
	if !ok {
		return nil, ErrNotFound
	}
	return &m, nil
}

func (r *memMembers) ListMembers(_ context.Context, workspaceID uuid.UUID) ([]models.WorkspaceMember, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	var out []models.WorkspaceMember
	for _, m := range r.db.members {
		if m.WorkspaceID != workspaceID {
			continue
		}
		if u, ok := r.db.users[m.UserID]; ok {
			m.User = &u
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *memMembers) ListForUser(_ context.Context, userID uuid.UUID) ([]models.WorkspaceMember, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	var out []models.WorkspaceMember
	for _, m := range r.db.members {
		if m.UserID != userID {
			continue
		}
		ws, ok := r.db.liveWorkspace(m.WorkspaceID)
		if !ok {
			continue
		}
		m.Workspace = &ws
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *memMembers) AddMember(_ context.Context, m *models.WorkspaceMember) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.db.insertMember(m)
}

func (db *memDB) insertMember(m *models.WorkspaceMember) error {
	for _, existing := range db.members {
		if existing.WorkspaceID == m.WorkspaceID && existing.UserID == m.UserID {
			return ErrDuplicate
		}
	}
	stamp(&m.Base)
	row := *m
	row.User, row.Workspace = nil, nil
	db.members[m.ID] = row
	return nil
}

func (r *memMembers) UpdateRole(_ context.Context, workspaceID, userID uuid.UUID, role models.Role) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	m, ok := r.find(workspaceID, userID)
	if !ok {
		return ErrNotFound
	}
	if role != models.RoleOwner && r.lastOwner(m) {
		return ErrLastOwner
	}
	m.Role = role
	stamp(&m.Base)
	r.db.members[m.ID] = m
	return nil
}

func (r *memMembers) RemoveMember(_ context.Context, workspaceID, userID uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	m, ok := r.find(workspaceID, userID)
	if !ok {
		return ErrNotFound
	}
	if r.lastOwner(m) {
		return ErrLastOwner
	}
	delete(r.db.members, m.ID)
	return nil
}

// lastOwner reports whether m is the only owner of its workspace.
func (r *memMembers) lastOwner(m models.WorkspaceMember) bool {
	if m.Role != models.RoleOwner {
		return false
	}
	for _, other := range r.db.members {
		if other.WorkspaceID == m.WorkspaceID && other.ID != m.ID && other.Role == models.RoleOwner {
			return false
		}
	}
	return true
}

// ---- team

type memTeam struct{ db *memDB }

func (r *memTeam) List(_ context.Context, workspaceID uuid.UUID, activeOnly bool) ([]models.TeamMember, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	var out []models.TeamMember
	for _, tm := range r.db.team {
		if tm.WorkspaceID == workspaceID && (!activeOnly || tm.IsActive) {
			out = append(out, tm)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memTeam) Find(_ context.Context, workspaceID, id uuid.UUID) (*models.TeamMember, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	tm, ok := r.db.team[id]
	if !ok || tm.WorkspaceID != workspaceID {
		return nil, ErrNotFound
	}
	return &tm, nil
}

func (r *memTeam) Create(_ context.Context, tm *models.TeamMember) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	stamp(&tm.Base)
	r.db.team[tm.ID] = *tm
	return nil
}

func (r *memTeam) Update(_ context.Context, tm *models.TeamMember) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if existing, ok := r.db.team[tm.ID]; !ok || existing.WorkspaceID != tm.WorkspaceID {
		return ErrNotFound
	}
	stamp(&tm.Base)
	r.db.team[tm.ID] = *tm
	return nil
}

func (r *memTeam) Delete(_ context.Context, workspaceID, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	tm, ok := r.db.team[id]
	if !ok || tm.WorkspaceID != workspaceID {
		return ErrNotFound
	}
	for _, a := range r.db.appointments {
		if a.TeamMemberID != nil && *a.TeamMemberID == id {
			return ErrInUse
		}
	}
	delete(r.db.team, id)
	return nil
}

func (r *memTeam) Count(_ context.Context, workspaceID uuid.UUID) (int64, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	var n int64
	for _, tm := range r.db.team {
		if tm.WorkspaceID == workspaceID {
			n++
		}
	}
	return n, nil
}

// ---- services

type memServices struct{ db *memDB }

func (db *memDB) serviceWithVariants(s models.Service) models.Service {
	s.Variants = nil
	for _, v := range db.variants {
		if v.ServiceID == s.ID {
			s.Variants = append(s.Variants, v)
		}
	}
	sort.Slice(s.Variants, func(i, j int) bool { return s.Variants[i].CreatedAt.Before(s.Variants[j].CreatedAt) })
	return s
}

func (r *memServices) List(_ context.Context, workspaceID uuid.UUID, activeOnly bool) ([]models.Service, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	var out []models.Service
	for _, s := range r.db.services {
		if s.WorkspaceID == workspaceID && (!activeOnly || s.IsActive) {
			out = append(out, r.db.serviceWithVariants(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memServices) Find(_ context.Context, workspaceID, id uuid.UUID) (*models.Service, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	s, ok := r.db.services[id]
	if !ok || s.WorkspaceID != workspaceID {
		return nil, ErrNotFound
	}
	s = r.db.serviceWithVariants(s)
	return &s, nil
}

func (r *memServices) Create(_ context.Context, s *models.Service) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	stamp(&s.Base)
	for i := range s.Variants {
		s.Variants[i].ServiceID = s.ID
		stamp(&s.Variants[i].Base)
		r.db.variants[s.Variants[i].ID] = s.Variants[i]
	}
	row := *s
	row.Variants = nil
	r.db.services[s.ID] = row
	return nil
}

func (r *memServices) Update(_ context.Context, s *models.Service) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if existing, ok := r.db.services[s.ID]; !ok || existing.WorkspaceID != s.WorkspaceID {
		return ErrNotFound
	}
	stamp(&s.Base)
	row := *s
	row.Variants = nil
	r.db.services[s.ID] = row
	return nil
}

func (r *memServices) Delete(_ context.Context, workspaceID, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s, ok := r.db.services[id]
	if !ok || s.WorkspaceID != workspaceID {
		return ErrNotFound
	}
	for _, a := range r.db.appointments {
		if a.ServiceID == id {
			return ErrInUse
		}
	}
	for vid, v := range r.db.variants {
		if v.ServiceID == id {
			delete(r.db.variants, vid)
		}
	}
	delete(r.db.services, id)
	return nil
}

func (r *memServices) Count(_ context.Context, workspaceID uuid.UUID) (int64, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	var n int64
	for _, s := range r.db.services {
		if s.WorkspaceID == workspaceID {
			n++
		}
	}
	return n, nil
}

func (r *memServices) CreateVariant(_ context.Context, v *models.ServiceVariant) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.services[v.ServiceID]; !ok {
		return ErrNotFound
	}
	stamp(&v.Base)
	r.db.variants[v.ID] = *v
	return nil
}

func (r *memServices) UpdateVariant(_ context.Context, v *models.ServiceVariant) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if existing, ok := r.db.variants[v.ID]; !ok || existing.ServiceID != v.ServiceID {
		return ErrNotFound
	}
	stamp(&v.Base)
	r.db.variants[v.ID] = *v
	return nil
}

func (r *memServices) DeleteVariant(_ context.Context, serviceID, variantID uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	v, ok := r.db.variants[variantID]
	if !ok || v.ServiceID != serviceID {
		return ErrNotFound
	}
	delete(r.db.variants, variantID)
	return nil
}

// ---- appointments

type memAppointments struct{ db *memDB }

// withRelations fills the associations the gorm repository preloads.
func (db *memDB) withRelations(a models.Appointment, teamMember, workspace bool) models.Appointment {
	if s, ok := db.services[a.ServiceID]; ok {
		s = db.serviceWithVariants(s)
		a.Service = &s
	}
	if teamMember && a.TeamMemberID != nil {
		if tm, ok := db.team[*a.TeamMemberID]; ok {
			a.TeamMember = &tm
		}
	}
	if workspace {
		if ws, ok := db.workspaces[a.WorkspaceID]; ok {
			a.Workspace = &ws
		}
	}
	return a
}

func stripRelations(a models.Appointment) models.Appointment {
	a.Service, a.TeamMember, a.Workspace = nil, nil, nil
	return a
}

func sortByStart(appts []models.Appointment) {
	sort.Slice(appts, func(i, j int) bool { return appts[i].StartTime.Before(appts[j].StartTime) })
}

func (r *memAppointments) Create(_ context.Context, a *models.Appointment) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.claimSlot(a); err != nil {
		return err
	}
	stamp(&a.Base)
	r.db.appointments[a.ID] = stripRelations(*a)
	return nil
}

func (r *memAppointments) Find(_ context.Context, workspaceID, id uuid.UUID) (*models.Appointment, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	a, ok := r.db.appointments[id]
	if !ok || a.WorkspaceID != workspaceID {
		return nil, ErrNotFound
	}
	a = r.db.withRelations(a, true, false)
	return &a, nil
}

func (r *memAppointments) FindByID(_ context.Context, id uuid.UUID) (*models.Appointment, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	a, ok := r.db.appointments[id]
	if !ok {
		return nil, ErrNotFound
	}
	a = r.db.withRelations(a, false, true)
	return &a, nil
}

func (r *memAppointments) List(_ context.Context, workspaceID uuid.UUID, f AppointmentFilter) ([]models.Appointment, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	var out []models.Appointment
	for _, a := range r.db.appointments {
		switch {
		case a.WorkspaceID != workspaceID,
			f.Status != "" && a.Status != f.Status,
			f.From != nil && a.StartTime.Before(*f.From),
			f.To != nil && !a.StartTime.Before(*f.To),
			f.TeamMemberID != nil && (a.TeamMemberID == nil || *a.TeamMemberID != *f.TeamMemberID):
			continue
		}
		out = append(out, r.db.withRelations(a, true, false))
	}
	sortByStart(out)
	return out, nil
}

func (r *memAppointments) Update(_ context.Context, a *models.Appointment) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	existing, ok := r.db.appointments[a.ID]
	if !ok || existing.WorkspaceID != a.WorkspaceID {
		return ErrNotFound
	}
	if !existing.UpdatedAt.Equal(a.UpdatedAt) {
		return ErrStale
	}
	if err := r.db.claimSlot(a); err != nil {
		return err
	}
	stamp(&a.Base)
	r.db.appointments[a.ID] = stripRelations(*a)
	return nil
}

func (r *memAppointments) MarkReminderSent(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	a, ok := r.db.appointments[id]
	if !ok || a.Status != models.StatusConfirmed {
		return false, nil
	}
	meta, err := a.Meta()
	if err != nil {
		return false, err
	}
	if meta.ReminderSentAt != nil {
		return false, nil
	}
	if err := a.MarkReminderSent(at.UTC()); err != nil {
		return false, err
	}
	stamp(&a.Base)
	r.db.appointments[id] = a
	return true, nil
}

func (r *memAppointments) Delete(_ context.Context, workspaceID, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	a, ok := r.db.appointments[id]
	if !ok || a.WorkspaceID != workspaceID {
		return ErrNotFound
	}
	delete(r.db.appointments, id)
	return nil
}

func (r *memAppointments) HasOverlap(_ context.Context, workspaceID, teamMemberID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return r.db.overlaps(workspaceID, teamMemberID, start, end, excludeID), nil
}

// claimSlot must run under the write lock.
func (db *memDB) claimSlot(a *models.Appointment) error {
	if a.TeamMemberID == nil || a.Status == models.StatusCancelled {
		return nil
	}
	if db.overlaps(a.WorkspaceID, *a.TeamMemberID, a.StartTime, a.EndTime, &a.ID) {
		return ErrSlotTaken
	}
	return nil
}

func (db *memDB) overlaps(workspaceID, teamMemberID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) bool {
	for _, a := range db.appointments {
		if a.WorkspaceID != workspaceID || a.Status == models.StatusCancelled {
			continue
		}
		if a.TeamMemberID == nil || *a.TeamMemberID != teamMemberID {
			continue
		}
		if excludeID != nil && a.ID == *excludeID {
			continue
		}
		if a.Overlaps(start, end) {
			return true
		}
	}
	return false
}

func (r *memAppointments) CountBetween(_ context.Context, workspaceID uuid.UUID, from, to time.Time) (int64, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	var n int64
	for _, a := range r.db.appointments {
		if a.WorkspaceID == workspaceID && a.Status != models.StatusCancelled &&
			!a.StartTime.Before(from) && a.StartTime.Before(to) {
			n++
		}
	}
	return n, nil
}

func (r *memAppointments) ListStartingBetween(_ context.Context, from, to time.Time) ([]models.Appointment, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	var out []models.Appointment
	for _, a := range r.db.appointments {
		if a.Status == models.StatusConfirmed && !a.StartTime.Before(from) && a.StartTime.Before(to) {
			out = append(out, r.db.withRelations(a, false, true))
		}
	}
	sortByStart(out)
	return out, nil
}

// ---- billing

type memBilling struct{ db *memDB }

func (r *memBilling) ListPlans(_ context.Context) ([]models.SubscriptionPlan, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	out := make([]models.SubscriptionPlan, 0, len(r.db.plans))
	for _, p := range r.db.plans {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PriceCents < out[j].PriceCents })
	return out, nil
}

func (r *memBilling) FindPlan(_ context.Context, code string) (*models.SubscriptionPlan, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	p, ok := r.db.plans[code]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (r *memBilling) SeedPlans(_ context.Context, plans []models.SubscriptionPlan) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	now := time.Now().UTC()
	for _, p := range plans {
		if existing, ok := r.db.plans[p.Code]; ok {
			p.CreatedAt = existing.CreatedAt
		} else {
			p.CreatedAt = now
		}
		p.UpdatedAt = now
		r.db.plans[p.Code] = p
	}
	return nil
}

func (r *memBilling) FindSubscription(_ context.Context, workspaceID uuid.UUID) (*models.Subscription, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	s, ok := r.db.subscriptions[workspaceID]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (r *memBilling) FindSubscriptionByStripeID(_ context.Context, stripeSubscriptionID string) (*models.Subscription, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	for _, s := range r.db.subscriptions {
		if stripeSubscriptionID != "" && s.StripeSubscriptionID == stripeSubscriptionID {
			return &s, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memBilling) SaveSubscription(_ context.Context, s *models.Subscription) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if existing, ok := r.db.subscriptions[s.WorkspaceID]; ok {
		s.ID = existing.ID
		s.CreatedAt = existing.CreatedAt
	}
	stamp(&s.Base)
	r.db.subscriptions[s.WorkspaceID] = *s
	return nil
}

func (r *memBilling) RecordWebhookEvent(_ context.Context, e *models.WebhookEvent) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	key := e.Provider + "/" + e.EventID
	if _, ok := r.db.events[key]; ok {
		return ErrDuplicate
	}
	stamp(&e.Base)
	r.db.events[key] = *e
	return nil
}

// InTx runs fn directly; each call is serialized but the batch is not rolled back on error.
func (r *memBilling) InTx(_ context.Context, fn func(BillingRepository) error) error {
	return fn(r)
}

// ---- invitations and join requests

type memInvitations struct{ db *memDB }

func (r *memInvitations) CreateInvitation(_ context.Context, inv *models.WorkspaceInvitation) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, existing := range r.db.invitations {
		if existing.Token == inv.Token {
			return ErrDuplicate
		}
	}
	stamp(&inv.Base)
	row := *inv
	row.Workspace = nil
	r.db.invitations[inv.ID] = row
	return nil
}

func (r *memInvitations) FindInvitation(_ context.Context, workspaceID, id uuid.UUID) (*models.WorkspaceInvitation, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	inv, ok := r.db.invitations[id]
	if !ok || inv.WorkspaceID != workspaceID {
		return nil, ErrNotFound
	}
	return &inv, nil
}

func (r *memInvitations) FindInvitationByToken(_ context.Context, token string) (*models.WorkspaceInvitation, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	for _, inv := range r.db.invitations {
		if token != "" && inv.Token == token {
			if ws, ok := r.db.workspaces[inv.WorkspaceID]; ok {
				inv.Workspace = &ws
			}
			return &inv, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memInvitations) FindPendingInvitation(_ context.Context, workspaceID uuid.UUID, email string) (*models.WorkspaceInvitation, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	for _, inv := range r.db.invitations {
		if inv.WorkspaceID == workspaceID && inv.Status == models.InvitationPending && strings.EqualFold(inv.Email, email) {
			return &inv, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memInvitations) ListInvitations(_ context.Context, workspaceID uuid.UUID) ([]models.WorkspaceInvitation, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	var out []models.WorkspaceInvitation
	for _, inv := range r.db.invitations {
		if inv.WorkspaceID == workspaceID {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memInvitations) UpdateInvitation(_ context.Context, inv *models.WorkspaceInvitation) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.db.saveInvitation(inv)
}

func (db *memDB) saveInvitation(inv *models.WorkspaceInvitation) error {
	if _, ok := db.invitations[inv.ID]; !ok {
		return ErrNotFound
	}
	stamp(&inv.Base)
	row := *inv
	row.Workspace = nil
	db.invitations[inv.ID] = row
	return nil
}

func (r *memInvitations) AcceptInvitation(_ context.Context, inv *models.WorkspaceInvitation, m *models.WorkspaceMember) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.invitations[inv.ID]; !ok {
		return ErrNotFound
	}
	if err := r.db.insertMember(m); err != nil {
		return err
	}
	return r.db.saveInvitation(inv)
}

func (r *memInvitations) CreateJoinRequest(_ context.Context, jr *models.WorkspaceJoinRequest) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	stamp(&jr.Base)
	row := *jr
	row.User = nil
	r.db.joinRequests[jr.ID] = row
	return nil
}

func (r *memInvitations) FindJoinRequest(_ context.Context, workspaceID, id uuid.UUID) (*models.WorkspaceJoinRequest, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	jr, ok := r.db.joinRequests[id]
	if !ok || jr.WorkspaceID != workspaceID {
		return nil, ErrNotFound
	}
	return &jr, nil
}

func (r *memInvitations) FindPendingJoinRequest(_ context.Context, workspaceID, userID uuid.UUID) (*models.WorkspaceJoinRequest, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	for _, jr := range r.db.joinRequests {
		if jr.WorkspaceID == workspaceID && jr.UserID == userID && jr.Status == models.JoinRequestPending {
			return &jr, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memInvitations) ListJoinRequests(_ context.Context, workspaceID uuid.UUID, status string) ([]models.WorkspaceJoinRequest, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	var out []models.WorkspaceJoinRequest
	for _, jr := range r.db.joinRequests {
		if jr.WorkspaceID != workspaceID || (status != "" && jr.Status != status) {
			continue
		}
		if u, ok := r.db.users[jr.UserID]; ok {
			jr.User = &u
		}
		out = append(out, jr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memInvitations) UpdateJoinRequest(_ context.Context, jr *models.WorkspaceJoinRequest) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return r.db.saveJoinRequest(jr)
}

func (db *memDB) saveJoinRequest(jr *models.WorkspaceJoinRequest) error {
	if _, ok := db.joinRequests[jr.ID]; !ok {
		return ErrNotFound
	}
	stamp(&jr.Base)
	row := *jr
	row.User = nil
	db.joinRequests[jr.ID] = row
	return nil
}

func (r *memInvitations) ApproveJoinRequest(_ context.Context, jr *models.WorkspaceJoinRequest, m *models.WorkspaceMember) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.joinRequests[jr.ID]; !ok {
		return ErrNotFound
	}
	if err := r.db.insertMember(m); err != nil {
		return err
	}
	return r.db.saveJoinRequest(jr)
}

// ---- notification log

type memNotifications struct{ db *memDB }

func (r *memNotifications) Create(_ context.Context, l *models.NotificationLog) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	stamp(&l.Base)
	r.db.notifications = append(r.db.notifications, *l)
	return nil
}

// Logs returns a snapshot of recorded notification attempts.
func (r *memNotifications) Logs() []models.NotificationLog {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return append([]models.NotificationLog(nil), r.db.notifications...)
}
