// Package storetest is the behavioural contract every storage backend must
// pass. Backend packages call Run and RunUsers from their own tests.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/uxfolio/portfolio-cms/internal/core/domain"
	"github.com/uxfolio/portfolio-cms/internal/core/ports"
)

var base = time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)

// Run exercises content, contact and activity operations against stores
// returned by newStore. Each subtest gets a fresh store.
func Run(t *testing.T, newStore func(t *testing.T) ports.Store) {
	tests := map[string]func(*testing.T, ports.Store){
		"CreateAppends":             testCreateAppends,
		"CreateWithOrder":           testCreateWithOrder,
		"GetNotFound":               testGetNotFound,
		"FieldsRoundTrip":           testFieldsRoundTrip,
		"Update":                    testUpdate,
		"UpdateAbortsOnMutateError": testUpdateAbortsOnMutateError,
		"ConcurrentUpdatesMerge":    testConcurrentUpdatesMerge,
		"DeleteLeavesGaps":          testDeleteLeavesGaps,
		"ReorderAllOrNothing":       testReorderAllOrNothing,
		"Compact":                   testCompact,
		"CollectionsIndependent":    testCollectionsIndependent,
		"ReorderAtomicForReaders":   testReorderAtomicForReaders,
		"Submissions":               testSubmissions,
		"SubmissionStatusAndDelete": testSubmissionStatusAndDelete,
		"Activity":                  testActivity,
		"PageFarBeyondEnd":          testPageFarBeyondEnd,
	}
	for name, fn := range tests {
		t.Run(name, func(t *testing.T) {
			fn(t, newStore(t))
		})
	}
}

func record(t domain.EntityType, id string, n int) *domain.Record {
	at := base.Add(time.Duration(n) * time.Minute)
	return &domain.Record{
		ID:        id,
		Type:      t,
		Visible:   true,
		Fields:    map[string]any{"name": id, "category": "Design"},
		CreatedAt: at,
		UpdatedAt: at,
	}
}

func mustCreate(t *testing.T, s ports.Store, rec *domain.Record, order *int) *domain.Record {
	t.Helper()
	created, err := s.Create(context.Background(), rec, order)
	if err != nil {
		t.Fatalf("create %s: %v", rec.ID, err)
	}
	return created
}

func seed(t *testing.T, s ports.Store, et domain.EntityType, ids ...string) {
	t.Helper()
	for i, id := range ids {
		mustCreate(t, s, record(et, id, i), nil)
	}
}

func orderOf(t *testing.T, s ports.Store, et domain.EntityType) ([]string, []int) {
	t.Helper()
	list, err := s.List(context.Background(), et)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	ids := make([]string, len(list))
	orders := make([]int, len(list))
	for i, r := range list {
		ids[i] = r.ID
		orders[i] = r.Order
	}
	return ids, orders
}

func intp(n int) *int { return &n }

func testCreateAppends(t *testing.T, s ports.Store) {
	seed(t, s, domain.EntitySkills, "a", "b", "c")

	ids, orders := orderOf(t, s, domain.EntitySkills)
	if !slices.Equal(ids, []string{"a", "b", "c"}) || !slices.Equal(orders, []int{0, 1, 2}) {
		t.Fatalf("unexpected listing: %v %v", ids, orders)
	}
}

func testCreateWithOrder(t *testing.T, s ports.Store) {
	mustCreate(t, s, record(domain.EntitySkills, "a", 0), intp(5))

	_, err := s.Create(context.Background(), record(domain.EntitySkills, "b", 1), intp(5))
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict for taken order, got %v", err)
	}

	c := mustCreate(t, s, record(domain.EntitySkills, "c", 2), nil)
	if c.Order != 6 {
		t.Fatalf("expected append after max order 5, got %d", c.Order)
	}
}

func testGetNotFound(t *testing.T, s ports.Store) {
	if _, err := s.Get(context.Background(), domain.EntitySkills, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func testFieldsRoundTrip(t *testing.T, s ports.Store) {
	rec := record(domain.EntityCaseStudies, "cs-1", 0)
	rec.Fields = map[string]any{
		"title":    "Checkout redesign",
		"year":     float64(2024),
		"tags":     []string{"ux", "research"},
		"featured": true,
	}
	rec.Visible = false
	mustCreate(t, s, rec, nil)

	got, err := s.Get(context.Background(), domain.EntityCaseStudies, "cs-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Visible {
		t.Errorf("expected visible=false to survive storage")
	}
	if got.Fields["title"] != "Checkout redesign" || got.Fields["year"] != float64(2024) || got.Fields["featured"] != true {
		t.Errorf("scalar fields changed: %#v", got.Fields)
	}
	tags, ok := got.Fields["tags"].([]string)
	if !ok || !slices.Equal(tags, []string{"ux", "research"}) {
		t.Errorf("list field changed: %#v", got.Fields["tags"])
	}
	if !got.CreatedAt.Equal(rec.CreatedAt) {
		t.Errorf("created_at changed: %v vs %v", got.CreatedAt, rec.CreatedAt)
	}
}

func testUpdate(t *testing.T, s ports.Store) {
	ctx := context.Background()
	seed(t, s, domain.EntitySkills, "a", "b")

	updated, err := s.Update(ctx, domain.EntitySkills, "b", func(rec *domain.Record) error {
		if rec.ID != "b" || rec.Order != 1 {
			t.Errorf("mutate got the wrong record: %+v", rec)
		}
		rec.Fields = map[string]any{"name": "Figma", "category": "Tools"}
		rec.Visible = false
		rec.Order = 99 // ignored
		rec.UpdatedAt = base.Add(time.Hour)
		return nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Order != 1 {
		t.Errorf("update must not move the record, got order %d", updated.Order)
	}
	if updated.Fields["name"] != "Figma" || updated.Visible {
		t.Errorf("update not applied: %+v", updated)
	}
	if !updated.UpdatedAt.Equal(base.Add(time.Hour)) {
		t.Errorf("updated_at not stored: %v", updated.UpdatedAt)
	}

	noop := func(*domain.Record) error { return nil }
	if _, err := s.Update(ctx, domain.EntitySkills, "zzz", noop); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.Update(ctx, domain.EntityEducation, "a", noop); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("update must be scoped to the entity type, got %v", err)
	}
}

func testUpdateAbortsOnMutateError(t *testing.T, s ports.Store) {
	ctx := context.Background()
	seed(t, s, domain.EntitySkills, "a")
	before, _ := s.Get(ctx, domain.EntitySkills, "a")

	_, err := s.Update(ctx, domain.EntitySkills, "a", func(rec *domain.Record) error {
		rec.Fields = map[string]any{"name": "changed"}
		rec.Visible = !rec.Visible
		return domain.NewValidationError("name", "is required")
	})
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected the mutate error back, got %v", err)
	}

	after, _ := s.Get(ctx, domain.EntitySkills, "a")
	if after.Fields["name"] != before.Fields["name"] || after.Visible != before.Visible {
		t.Fatalf("aborted update was stored: %+v", after)
	}
}

// Each writer adds its own field. A read-modify-write that is not atomic
// loses some of them.
func testConcurrentUpdatesMerge(t *testing.T, s ports.Store) {
	ctx := context.Background()
	seed(t, s, domain.EntitySkills, "a")

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			_, err := s.Update(ctx, domain.EntitySkills, "a", func(rec *domain.Record) error {
				next := make(map[string]any, len(rec.Fields)+1)
				for k, v := range rec.Fields {
					next[k] = v
				}
				next[key] = "set"
				rec.Fields = next
				return nil
			})
			errs <- err
		}(fmt.Sprintf("k%d", i))
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("update: %v", err)
		}
	}

	got, _ := s.Get(ctx, domain.EntitySkills, "a")
	for i := 0; i < writers; i++ {
		if got.Fields[fmt.Sprintf("k%d", i)] != "set" {
			t.Fatalf("lost update for k%d: %v", i, got.Fields)
		}
	}
}

func testDeleteLeavesGaps(t *testing.T, s ports.Store) {
	seed(t, s, domain.EntitySkills, "a", "b", "c")

	if err := s.Delete(context.Background(), domain.EntitySkills, "b"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	ids, orders := orderOf(t, s, domain.EntitySkills)
	if !slices.Equal(ids, []string{"a", "c"}) || !slices.Equal(orders, []int{0, 2}) {
		t.Fatalf("expected gap after delete, got %v %v", ids, orders)
	}

	d := mustCreate(t, s, record(domain.EntitySkills, "d", 3), nil)
	if d.Order != 3 {
		t.Fatalf("expected new record at max+1=3, got %d", d.Order)
	}
	if err := s.Delete(context.Background(), domain.EntitySkills, "b"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func testReorderAllOrNothing(t *testing.T, s ports.Store) {
	seed(t, s, domain.EntitySkills, "a", "b", "c")
	ctx := context.Background()

	if err := s.Reorder(ctx, domain.EntitySkills, []string{"c", "a", "b"}); err != nil {
		t.Fatalf("reorder: %v", err)
	}
	ids, orders := orderOf(t, s, domain.EntitySkills)
	if !slices.Equal(ids, []string{"c", "a", "b"}) || !slices.Equal(orders, []int{0, 1, 2}) {
		t.Fatalf("unexpected order after reorder: %v %v", ids, orders)
	}

	bad := map[string][]string{
		"partial":   {"a", "b"},
		"foreign":   {"c", "a", "x"},
		"duplicate": {"c", "c", "a"},
		"superset":  {"c", "a", "b", "x"},
	}
	for name, in := range bad {
		if err := s.Reorder(ctx, domain.EntitySkills, in); !errors.Is(err, domain.ErrConflict) {
			t.Errorf("%s: expected ErrConflict, got %v", name, err)
		}
		after, _ := orderOf(t, s, domain.EntitySkills)
		if !slices.Equal(after, []string{"c", "a", "b"}) {
			t.Fatalf("%s: rejected reorder changed state: %v", name, after)
		}
	}
}

func testCompact(t *testing.T, s ports.Store) {
	ctx := context.Background()
	mustCreate(t, s, record(domain.EntitySkills, "a", 0), intp(3))
	mustCreate(t, s, record(domain.EntitySkills, "b", 1), intp(10))
	mustCreate(t, s, record(domain.EntitySkills, "c", 2), intp(7))

	if err := s.Compact(ctx, domain.EntitySkills); err != nil {
		t.Fatalf("compact: %v", err)
	}
	ids, orders := orderOf(t, s, domain.EntitySkills)
	if !slices.Equal(ids, []string{"a", "c", "b"}) || !slices.Equal(orders, []int{0, 1, 2}) {
		t.Fatalf("unexpected order after compact: %v %v", ids, orders)
	}
}

func testCollectionsIndependent(t *testing.T, s ports.Store) {
	seed(t, s, domain.EntitySkills, "a", "b")
	c := mustCreate(t, s, record(domain.EntityEducation, "e", 0), nil)
	if c.Order != 0 {
		t.Fatalf("expected first education record at order 0, got %d", c.Order)
	}
	if err := s.Reorder(context.Background(), domain.EntityEducation, []string{"e"}); err != nil {
		t.Fatalf("reorder of other collection: %v", err)
	}
	ids, _ := orderOf(t, s, domain.EntitySkills)
	if !slices.Equal(ids, []string{"a", "b"}) {
		t.Fatalf("skills affected by education changes: %v", ids)
	}
}

// testReorderAtomicForReaders checks that a reader never sees a listing in
// which two records share an order, which would mean a half-applied reorder.
func testReorderAtomicForReaders(t *testing.T, s ports.Store) {
	ids := make([]string, 8)
	for i := range ids {
		ids[i] = fmt.Sprintf("r%d", i)
	}
	seed(t, s, domain.EntitySkills, ids...)
	ctx := context.Background()

	var wg sync.WaitGroup
	stop := make(chan struct{})
	errs := make(chan error, 64)

	for w := 0; w < 2; w++ {
		wg.Add(1)
		go func(seed uint64) {
			defer wg.Done()
			rng := rand.New(rand.NewPCG(seed, seed))
			for i := 0; i < 20; i++ {
				perm := slices.Clone(ids)
				rng.Shuffle(len(perm), func(a, b int) { perm[a], perm[b] = perm[b], perm[a] })
				if err := s.Reorder(ctx, domain.EntitySkills, perm); err != nil {
					errs <- err
					return
				}
			}
		}(uint64(w + 1))
	}

	var readers sync.WaitGroup
	readers.Add(1)
	go func() {
		defer readers.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			list, err := s.List(ctx, domain.EntitySkills)
			if err != nil {
				errs <- err
				return
			}
			seen := make(map[int]bool, len(list))
			for _, r := range list {
				if seen[r.Order] {
					errs <- fmt.Errorf("order %d observed twice", r.Order)
					return
				}
				seen[r.Order] = true
			}
		}
	}()

	wg.Wait()
	close(stop)
	readers.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}

	_, orders := orderOf(t, s, domain.EntitySkills)
	if !slices.Equal(orders, []int{0, 1, 2, 3, 4, 5, 6, 7}) {
		t.Fatalf("orders not dense after concurrent reorders: %v", orders)
	}
}

func submission(id string, n int, status domain.ContactStatus) *domain.ContactSubmission {
	at := base.Add(time.Duration(n) * time.Minute)
	return &domain.ContactSubmission{
		ID:        id,
		Name:      "Visitor " + id,
		Email:     id + "@example.com",
		Message:   "Hello",
		Source:    "203.0.113.7",
		Status:    status,
		CreatedAt: at,
		UpdatedAt: at,
	}
}

func testSubmissions(t *testing.T, s ports.Store) {
	ctx := context.Background()
	for i, id := range []string{"s1", "s2", "s3"} {
		status := domain.ContactNew
		if id == "s2" {
			status = domain.ContactArchived
		}
		if err := s.CreateSubmission(ctx, submission(id, i, status)); err != nil {
			t.Fatalf("create submission: %v", err)
		}
	}

	all, total, err := s.ListSubmissions(ctx, ports.ContactFilter{Page: domain.Page{Page: 1, Limit: 2}})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 || len(all) != 2 || all[0].ID != "s3" || all[1].ID != "s2" {
		t.Fatalf("expected newest-first first page [s3 s2] of 3, got %d %v", total, submissionIDs(all))
	}

	second, _, _ := s.ListSubmissions(ctx, ports.ContactFilter{Page: domain.Page{Page: 2, Limit: 2}})
	if len(second) != 1 || second[0].ID != "s1" {
		t.Fatalf("expected second page [s1], got %v", submissionIDs(second))
	}

	fresh, total, _ := s.ListSubmissions(ctx, ports.ContactFilter{Status: domain.ContactNew, Page: domain.Page{Page: 1, Limit: 20}})
	if total != 2 || len(fresh) != 2 {
		t.Fatalf("expected 2 new submissions, got %d %v", total, submissionIDs(fresh))
	}

	got, err := s.GetSubmission(ctx, "s2")
	if err != nil || got.Email != "s2@example.com" || got.Status != domain.ContactArchived {
		t.Fatalf("unexpected submission: %+v, %v", got, err)
	}
	if _, err := s.GetSubmission(ctx, "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func submissionIDs(subs []*domain.ContactSubmission) []string {
	out := make([]string, len(subs))
	for i, s := range subs {
		out[i] = s.ID
	}
	return out
}

func testSubmissionStatusAndDelete(t *testing.T, s ports.Store) {
	ctx := context.Background()
	if err := s.CreateSubmission(ctx, submission("s1", 0, domain.ContactNew)); err != nil {
		t.Fatalf("create submission: %v", err)
	}

	at := base.Add(time.Hour)
	updated, err := s.UpdateSubmission(ctx, "s1", func(sub *domain.ContactSubmission) error {
		if sub.Status != domain.ContactNew {
			t.Errorf("mutate got status %s", sub.Status)
		}
		sub.Status = domain.ContactRead
		sub.UpdatedAt = at
		sub.Name = "ignored"
		return nil
	})
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if updated.Status != domain.ContactRead {
		t.Fatalf("returned submission not updated: %+v", updated)
	}
	got, _ := s.GetSubmission(ctx, "s1")
	if got.Status != domain.ContactRead || !got.UpdatedAt.Equal(at) {
		t.Fatalf("status not updated: %+v", got)
	}
	if got.Name == "ignored" {
		t.Fatalf("only status and updated_at may change, got %+v", got)
	}

	_, err = s.UpdateSubmission(ctx, "s1", func(sub *domain.ContactSubmission) error {
		sub.Status = domain.ContactArchived
		return domain.ErrInvalidTransition
	})
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected the mutate error back, got %v", err)
	}
	if got, _ := s.GetSubmission(ctx, "s1"); got.Status != domain.ContactRead {
		t.Fatalf("aborted status change was stored: %s", got.Status)
	}

	noop := func(*domain.ContactSubmission) error { return nil }
	if _, err := s.UpdateSubmission(ctx, "nope", noop); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := s.DeleteSubmission(ctx, "s1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteSubmission(ctx, "s1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func testActivity(t *testing.T, s ports.Store) {
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		err := s.AppendActivity(ctx, &domain.ActivityEntry{
			ID:         fmt.Sprintf("a%d", i),
			Timestamp:  base.Add(time.Duration(i) * time.Second),
			ActorID:    "u1",
			ActorName:  "carol",
			Action:     domain.ActionCreate,
			EntityType: string(domain.EntitySkills),
			EntityID:   fmt.Sprintf("r%d", i),
			Summary:    "created",
		})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	page, total, err := s.ListActivity(ctx, domain.Page{Page: 1, Limit: 2})
	if err != nil {
		t.Fatalf("list activity: %v", err)
	}
	if total != 5 || len(page) != 2 || page[0].ID != "a4" || page[1].ID != "a3" {
		t.Fatalf("expected newest-first [a4 a3] of 5, got %d %+v", total, page)
	}
	if page[0].Action != domain.ActionCreate || page[0].ActorName != "carol" {
		t.Fatalf("entry fields lost: %+v", page[0])
	}

	last, _, _ := s.ListActivity(ctx, domain.Page{Page: 3, Limit: 2})
	if len(last) != 1 || last[0].ID != "a0" {
		t.Fatalf("expected last page [a0], got %+v", last)
	}
}

// RunUsers exercises an AuthRepository implementation.
func RunUsers(t *testing.T, newRepo func(t *testing.T) ports.AuthRepository) {
	ctx := context.Background()
	repo := newRepo(t)

	u := &domain.User{ID: "u1", Username: "carol", PasswordHash: "hash", Role: domain.RoleAdmin, CreatedAt: base, UpdatedAt: base}
	if _, err := repo.Create(ctx, u); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := repo.Create(ctx, &domain.User{ID: "u2", Username: "carol", Role: domain.RoleEditor}); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}

	byName, err := repo.FindByUsername(ctx, "carol")
	if err != nil || byName.ID != "u1" || byName.PasswordHash != "hash" {
		t.Fatalf("unexpected lookup by username: %+v, %v", byName, err)
	}
	if _, err := repo.FindByUsername(ctx, "ghost"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	byName.Username = "caroline"
	byName.PasswordHash = "hash2"
	if _, err := repo.Update(ctx, byName); err != nil {
		t.Fatalf("update: %v", err)
	}
	byID, err := repo.FindByID(ctx, "u1")
	if err != nil || byID.Username != "caroline" || byID.PasswordHash != "hash2" {
		t.Fatalf("update not applied: %+v, %v", byID, err)
	}
	if _, err := repo.FindByID(ctx, "u9"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if _, err := repo.Update(ctx, &domain.User{ID: "u9", Username: "x"}); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound on update, got %v", err)
	}
}

func testPageFarBeyondEnd(t *testing.T, s ports.Store) {
	ctx := context.Background()
	if err := s.CreateSubmission(ctx, submission("s1", 0, domain.ContactNew)); err != nil {
		t.Fatalf("create submission: %v", err)
	}
	if err := s.AppendActivity(ctx, &domain.ActivityEntry{ID: "a1", Timestamp: base, ActorID: "u1", Action: domain.ActionCreate, EntityType: "skills"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	far := domain.Page{Page: math.MaxInt/100 - 1, Limit: 100}
	entries, total, err := s.ListActivity(ctx, far)
	if err != nil || len(entries) != 0 || total != 1 {
		t.Fatalf("expected an empty page of 1 entry, got %d/%d, %v", len(entries), total, err)
	}
	subs, total, err := s.ListSubmissions(ctx, ports.ContactFilter{Page: far})
	if err != nil || len(subs) != 0 || total != 1 {
		t.Fatalf("expected an empty page of 1 submission, got %d/%d, %v", len(subs), total, err)
	}
}
