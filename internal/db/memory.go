package db

import (
	"context"
	"sort"
	"sync"
	"time"

	"startuppush/internal/models"
)

type memState struct {
	nextID        uint
	users         map[uint]models.User
	products      map[uint]models.Product
	votes         map[uint]models.Vote
	comments      map[uint]models.Comment
	pointLogs     map[uint]models.PointLog
	promotions    map[uint]models.Promotion
	counters      map[uint]models.BoostSaleCounter
	notifications map[uint]models.Notification
	follows       map[uint]models.Follow
	shares        map[uint]models.Share
	reports       map[uint]models.Report
}

func newMemState() *memState {
	return &memState{
		users:         map[uint]models.User{},
		products:      map[uint]models.Product{},
		votes:         map[uint]models.Vote{},
		comments:      map[uint]models.Comment{},
		pointLogs:     map[uint]models.PointLog{},
		promotions:    map[uint]models.Promotion{},
		counters:      map[uint]models.BoostSaleCounter{},
		notifications: map[uint]models.Notification{},
		follows:       map[uint]models.Follow{},
		shares:        map[uint]models.Share{},
		reports:       map[uint]models.Report{},
	}
}

func cloneMap[V any](m map[uint]V) map[uint]V {
	out := make(map[uint]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *memState) clone() *memState {
	return &memState{
		nextID:        s.nextID,
		users:         cloneMap(s.users),
		products:      cloneMap(s.products),
		votes:         cloneMap(s.votes),
		comments:      cloneMap(s.comments),
		pointLogs:     cloneMap(s.pointLogs),
		promotions:    cloneMap(s.promotions),
		counters:      cloneMap(s.counters),
		notifications: cloneMap(s.notifications),
		follows:       cloneMap(s.follows),
		shares:        cloneMap(s.shares),
		reports:       cloneMap(s.reports),
	}
}

func (s *memState) id() uint {
	s.nextID++
	return s.nextID
}

// Memory 进程内存储，用于测试与 STORE_DRIVER=memory。
// 所有操作在同一把锁下执行，事务期间持有锁，失败时回滚到快照
type Memory struct {
	mu    *sync.Mutex
	state *memState
	inTx  bool
}

func NewMemory() *Memory {
	return &Memory{mu: &sync.Mutex{}, state: newMemState()}
}

func (m *Memory) lock() func() {
	if m.inTx {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

func stamp(t *time.Time) {
	if t.IsZero() {
		*t = time.Now()
	}
}

func (m *Memory) Transaction(ctx context.Context, fn func(tx Store) error) error {
	unlock := m.lock()
	defer unlock()

	snapshot := m.state.clone()
	if err := fn(&Memory{mu: m.mu, state: m.state, inTx: true}); err != nil {
		*m.state = *snapshot
		return err
	}
	return nil
}

func (m *Memory) Ping(ctx context.Context) error { return nil }

// ---- users ----

func (m *Memory) CreateUser(ctx context.Context, u *models.User) error {
	defer m.lock()()
	if u.ID == 0 {
		u.ID = m.state.id()
	} else if _, ok := m.state.users[u.ID]; ok {
		return ErrDuplicate
	} else if u.ID > m.state.nextID {
		m.state.nextID = u.ID
	}
	if u.Role == "" {
		u.Role = "user"
	}
	stamp(&u.CreatedAt)
	u.UpdatedAt = u.CreatedAt
	m.state.users[u.ID] = *u
	return nil
}

func (m *Memory) GetUser(ctx context.Context, id uint) (*models.User, error) {
	defer m.lock()()
	u, ok := m.state.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *Memory) UpdateUserStatus(ctx context.Context, id uint, status int, expires *time.Time) error {
	defer m.lock()()
	u, ok := m.state.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Status = status
	u.PunishExpires = expires
	u.UpdatedAt = time.Now()
	m.state.users[id] = u
	return nil
}

func (m *Memory) ListAdminIDs(ctx context.Context) ([]uint, error) {
	defer m.lock()()
	var ids []uint
	for id, u := range m.state.users {
		if u.Role == models.RoleAdmin {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// ---- points ----

func (m *Memory) ApplyPoints(ctx context.Context, entry *models.PointLog) error {
	defer m.lock()()
	u, ok := m.state.users[entry.UserID]
	if !ok {
		return ErrNotFound
	}
	if u.Points+entry.Amount < 0 {
		return ErrInsufficientBalance
	}
	u.Points += entry.Amount
	m.state.users[u.ID] = u

	entry.ID = m.state.id()
	stamp(&entry.CreatedAt)
	m.state.pointLogs[entry.ID] = *entry
	return nil
}

func (m *Memory) CountActivitySince(ctx context.Context, userID uint, category models.PointCategory, since time.Time) (int64, error) {
	defer m.lock()()
	var n int64
	if category == models.CategoryCommenting {
		for _, c := range m.state.comments {
			if c.UserID == userID && !c.CreatedAt.Before(since) {
				n++
			}
		}
		return n, nil
	}
	for _, l := range m.state.pointLogs {
		if l.UserID == userID && l.Category == category && l.Amount > 0 && !l.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (m *Memory) ListPointLogs(ctx context.Context, userID uint, limit int) ([]models.PointLog, error) {
	defer m.lock()()
	var logs []models.PointLog
	for _, l := range m.state.pointLogs {
		if l.UserID == userID {
			logs = append(logs, l)
		}
	}
	sort.Slice(logs, func(i, j int) bool { return newerFirst(logs[i].CreatedAt, logs[j].CreatedAt, logs[i].ID, logs[j].ID) })
	return limitSlice(logs, limit), nil
}

// ---- products ----

func (m *Memory) CreateProduct(ctx context.Context, p *models.Product) error {
	defer m.lock()()
	if _, ok := m.state.users[p.UserID]; !ok {
		return ErrNotFound
	}
	p.ID = m.state.id()
	if p.Status == "" {
		p.Status = models.StatusActive
	}
	stamp(&p.CreatedAt)
	p.UpdatedAt = p.CreatedAt
	m.state.products[p.ID] = *p
	return nil
}

func (m *Memory) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	defer m.lock()()
	p, ok := m.state.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *Memory) UpdateProduct(ctx context.Context, p *models.Product) error {
	defer m.lock()()
	cur, ok := m.state.products[p.ID]
	if !ok {
		return ErrNotFound
	}
	cur.Name = p.Name
	cur.Tagline = p.Tagline
	cur.Description = p.Description
	cur.URL = p.URL
	cur.IsActive = p.IsActive
	cur.UpdatedAt = time.Now()
	m.state.products[p.ID] = cur
	return nil
}

func (m *Memory) SetProductStatus(ctx context.Context, id uint, status models.ModerationStatus) error {
	defer m.lock()()
	p, ok := m.state.products[id]
	if !ok {
		return ErrNotFound
	}
	p.Status = status
	m.state.products[id] = p
	return nil
}

func (m *Memory) DeleteProduct(ctx context.Context, id uint) error {
	defer m.lock()()
	if _, ok := m.state.products[id]; !ok {
		return ErrNotFound
	}
	delete(m.state.products, id)
	// 与外键 ON DELETE CASCADE 保持一致
	for k, v := range m.state.votes {
		if v.ProductID == id {
			delete(m.state.votes, k)
		}
	}
	for k, c := range m.state.comments {
		if c.ProductID == id {
			delete(m.state.comments, k)
		}
	}
	for k, p := range m.state.promotions {
		if p.ProductID == id {
			delete(m.state.promotions, k)
		}
	}
	for k, f := range m.state.follows {
		if f.ProductID == id {
			delete(m.state.follows, k)
		}
	}
	for k, s := range m.state.shares {
		if s.ProductID == id {
			delete(m.state.shares, k)
		}
	}
	return nil
}

func (m *Memory) ListVisibleProducts(ctx context.Context) ([]models.Product, error) {
	defer m.lock()()
	var products []models.Product
	for _, p := range m.state.products {
		if p.Visible() {
			products = append(products, p)
		}
	}
	sort.Slice(products, func(i, j int) bool {
		return newerFirst(products[i].CreatedAt, products[j].CreatedAt, products[i].ID, products[j].ID)
	})
	return products, nil
}

// ---- votes ----

func (m *Memory) CreateVote(ctx context.Context, v *models.Vote) error {
	defer m.lock()()
	if _, ok := m.state.products[v.ProductID]; !ok {
		return ErrNotFound
	}
	for _, existing := range m.state.votes {
		if existing.UserID == v.UserID && existing.ProductID == v.ProductID {
			return ErrDuplicate
		}
	}
	v.ID = m.state.id()
	stamp(&v.CreatedAt)
	m.state.votes[v.ID] = *v
	return nil
}

func (m *Memory) GetVote(ctx context.Context, userID, productID uint) (*models.Vote, error) {
	defer m.lock()()
	for _, v := range m.state.votes {
		if v.UserID == userID && v.ProductID == productID {
			return &v, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) VoteTallies(ctx context.Context, productIDs []uint) (map[uint]Tally, error) {
	defer m.lock()()
	wanted := make(map[uint]bool, len(productIDs))
	for _, id := range productIDs {
		wanted[id] = true
	}
	tallies := make(map[uint]Tally, len(productIDs))
	for _, v := range m.state.votes {
		if !wanted[v.ProductID] {
			continue
		}
		t := tallies[v.ProductID]
		if v.Value == models.VoteUp {
			t.Upvotes++
		} else {
			t.Downvotes++
		}
		tallies[v.ProductID] = t
	}
	return tallies, nil
}

// ---- comments ----

func (m *Memory) CreateComment(ctx context.Context, c *models.Comment) error {
	defer m.lock()()
	if _, ok := m.state.products[c.ProductID]; !ok {
		return ErrNotFound
	}
	if c.ParentID != nil {
		if _, ok := m.state.comments[*c.ParentID]; !ok {
			return ErrNotFound
		}
	}
	c.ID = m.state.id()
	if c.Status == "" {
		c.Status = models.StatusActive
	}
	stamp(&c.CreatedAt)
	c.UpdatedAt = c.CreatedAt
	m.state.comments[c.ID] = *c
	return nil
}

func (m *Memory) GetComment(ctx context.Context, id uint) (*models.Comment, error) {
	defer m.lock()()
	c, ok := m.state.comments[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (m *Memory) ListComments(ctx context.Context, productID uint, status models.ModerationStatus) ([]models.Comment, error) {
	defer m.lock()()
	var comments []models.Comment
	for _, c := range m.state.comments {
		if c.ProductID == productID && c.Status == status {
			comments = append(comments, c)
		}
	}
	sort.Slice(comments, func(i, j int) bool {
		return !newerFirst(comments[i].CreatedAt, comments[j].CreatedAt, comments[i].ID, comments[j].ID)
	})
	return comments, nil
}

func (m *Memory) SetCommentStatus(ctx context.Context, id uint, status models.ModerationStatus) error {
	defer m.lock()()
	c, ok := m.state.comments[id]
	if !ok {
		return ErrNotFound
	}
	c.Status = status
	c.UpdatedAt = time.Now()
	m.state.comments[id] = c
	return nil
}

func (m *Memory) DeleteComment(ctx context.Context, id uint) error {
	defer m.lock()()
	if _, ok := m.state.comments[id]; !ok {
		return ErrNotFound
	}
	// 回复链一并删除
	queue := []uint{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		delete(m.state.comments, cur)
		for k, c := range m.state.comments {
			if c.ParentID != nil && *c.ParentID == cur {
				queue = append(queue, k)
			}
		}
	}
	return nil
}

// ---- promotions ----

func (m *Memory) CreatePromotion(ctx context.Context, p *models.Promotion) error {
	defer m.lock()()
	if _, ok := m.state.products[p.ProductID]; !ok {
		return ErrNotFound
	}
	p.ID = m.state.id()
	stamp(&p.CreatedAt)
	m.state.promotions[p.ID] = *p
	return nil
}

func (m *Memory) ValidPromotions(ctx context.Context, productIDs []uint, now time.Time) ([]models.Promotion, error) {
	defer m.lock()()
	var wanted map[uint]bool
	if productIDs != nil {
		wanted = make(map[uint]bool, len(productIDs))
		for _, id := range productIDs {
			wanted[id] = true
		}
	}
	var out []models.Promotion
	for _, p := range m.state.promotions {
		if wanted != nil && !wanted[p.ProductID] {
			continue
		}
		if p.ValidAt(now) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return newerFirst(out[i].EndDate, out[j].EndDate, out[i].ID, out[j].ID) })
	return out, nil
}

// ---- boost counters ----

func (m *Memory) findCounter(month string, plan models.PlanType) (models.BoostSaleCounter, bool) {
	for _, c := range m.state.counters {
		if c.Month == month && c.PlanType == plan {
			return c, true
		}
	}
	return models.BoostSaleCounter{}, false
}

func (m *Memory) GetBoostCounter(ctx context.Context, month string, plan models.PlanType) (*models.BoostSaleCounter, error) {
	defer m.lock()()
	c, ok := m.findCounter(month, plan)
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (m *Memory) IncrementBoostCounter(ctx context.Context, month string, plan models.PlanType, maxSpots, discountThreshold int64) (*models.BoostSaleCounter, error) {
	defer m.lock()()
	c, ok := m.findCounter(month, plan)
	if !ok {
		c = models.BoostSaleCounter{ID: m.state.id(), Month: month, PlanType: plan, MaxSpots: maxSpots, CreatedAt: time.Now()}
	}
	c.SoldCount++
	c.IsActive = c.SoldCount < discountThreshold
	c.UpdatedAt = time.Now()
	m.state.counters[c.ID] = c
	return &c, nil
}

// ---- notifications ----

func (m *Memory) CreateNotifications(ctx context.Context, ns []models.Notification) error {
	defer m.lock()()
	for i := range ns {
		if _, ok := m.state.users[ns[i].UserID]; !ok {
			return ErrNotFound
		}
	}
	for i := range ns {
		ns[i].ID = m.state.id()
		stamp(&ns[i].CreatedAt)
		m.state.notifications[ns[i].ID] = ns[i]
	}
	return nil
}

func (m *Memory) ListNotifications(ctx context.Context, userID uint, limit int) ([]models.Notification, error) {
	defer m.lock()()
	var ns []models.Notification
	for _, n := range m.state.notifications {
		if n.UserID == userID {
			ns = append(ns, n)
		}
	}
	sort.Slice(ns, func(i, j int) bool { return newerFirst(ns[i].CreatedAt, ns[j].CreatedAt, ns[i].ID, ns[j].ID) })
	return limitSlice(ns, limit), nil
}

func (m *Memory) CountUnread(ctx context.Context, userID uint) (int64, error) {
	defer m.lock()()
	var n int64
	for _, x := range m.state.notifications {
		if x.UserID == userID && !x.IsRead {
			n++
		}
	}
	return n, nil
}

func (m *Memory) MarkNotificationRead(ctx context.Context, userID, id uint) error {
	defer m.lock()()
	n, ok := m.state.notifications[id]
	if !ok || n.UserID != userID {
		return ErrNotFound
	}
	n.IsRead = true
	m.state.notifications[id] = n
	return nil
}

func (m *Memory) MarkAllNotificationsRead(ctx context.Context, userID uint) error {
	defer m.lock()()
	for id, n := range m.state.notifications {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			m.state.notifications[id] = n
		}
	}
	return nil
}

func (m *Memory) DeleteNotification(ctx context.Context, userID, id uint) error {
	defer m.lock()()
	n, ok := m.state.notifications[id]
	if !ok || n.UserID != userID {
		return ErrNotFound
	}
	delete(m.state.notifications, id)
	return nil
}

// ---- follows / shares ----

func (m *Memory) CreateFollow(ctx context.Context, f *models.Follow) error {
	defer m.lock()()
	if _, ok := m.state.products[f.ProductID]; !ok {
		return ErrNotFound
	}
	for _, existing := range m.state.follows {
		if existing.UserID == f.UserID && existing.ProductID == f.ProductID {
			return ErrDuplicate
		}
	}
	f.ID = m.state.id()
	stamp(&f.CreatedAt)
	m.state.follows[f.ID] = *f
	return nil
}

func (m *Memory) DeleteFollow(ctx context.Context, userID, productID uint) error {
	defer m.lock()()
	for id, f := range m.state.follows {
		if f.UserID == userID && f.ProductID == productID {
			delete(m.state.follows, id)
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) ListFollowerIDs(ctx context.Context, productID uint) ([]uint, error) {
	defer m.lock()()
	var ids []uint
	for _, f := range m.state.follows {
		if f.ProductID == productID {
			ids = append(ids, f.UserID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m *Memory) CreateShare(ctx context.Context, s *models.Share) error {
	defer m.lock()()
	if _, ok := m.state.products[s.ProductID]; !ok {
		return ErrNotFound
	}
	s.ID = m.state.id()
	stamp(&s.CreatedAt)
	m.state.shares[s.ID] = *s
	return nil
}

// ---- reports ----

func (m *Memory) CreateReport(ctx context.Context, r *models.Report) error {
	defer m.lock()()
	for _, existing := range m.state.reports {
		if existing.UserID == r.UserID && existing.ResourceType == r.ResourceType && existing.ResourceID == r.ResourceID {
			return ErrDuplicate
		}
	}
	r.ID = m.state.id()
	stamp(&r.CreatedAt)
	m.state.reports[r.ID] = *r
	return nil
}

func (m *Memory) CountReports(ctx context.Context, resource models.ResourceType, resourceID uint) (int64, error) {
	defer m.lock()()
	var n int64
	for _, r := range m.state.reports {
		if r.ResourceType == resource && r.ResourceID == resourceID {
			n++
		}
	}
	return n, nil
}

func newerFirst(a, b time.Time, idA, idB uint) bool {
	if !a.Equal(b) {
		return a.After(b)
	}
	return idA > idB
}

func limitSlice[T any](s []T, limit int) []T {
	if limit > 0 && len(s) > limit {
		return s[:limit]
	}
	return s
}
