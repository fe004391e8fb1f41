package widget

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"

	"github.com/widgetlabs/widget-api/internal/platform/cache"
)

func TestWidget(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Widget Module Suite")
}

type mockRepository struct {
	byID map[string]*Widget

	listCalls   int
	countCalls  int
	updateCalls int
}

func newMockRepository() *mockRepository {
	return &mockRepository{byID: map[string]*Widget{}}
}

func (m *mockRepository) Create(_ context.Context, w *Widget) error {
	m.byID[w.ID] = w
	return nil
}

func (m *mockRepository) GetByOwnerAndID(_ context.Context, ownerID, id string) (*Widget, error) {
	if w, ok := m.byID[id]; ok && w.OwnerID == ownerID {
		copied := *w
		return &copied, nil
	}
	return nil, ErrWidgetNotFound
}

func (m *mockRepository) ListByOwner(_ context.Context, ownerID, category string, skip, limit int) ([]Widget, error) {
	m.listCalls++
	var out []Widget
	for _, w := range m.byID {
		if w.OwnerID != ownerID {
			continue
		}
		if category != "" && w.Category != category {
			continue
		}
		out = append(out, *w)
	}
	if skip >= len(out) {
		return nil, nil
	}
	out = out[skip:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockRepository) UpdateFields(_ context.Context, ownerID, id string, fields map[string]interface{}) (int64, error) {
	m.updateCalls++
	w, ok := m.byID[id]
	if !ok || w.OwnerID != ownerID {
		return 0, nil
	}
	if v, ok := fields["name"]; ok {
		w.Name = v.(string)
	}
	if v, ok := fields["price"]; ok {
		w.Price = v.(float64)
	}
	if v, ok := fields["quantity"]; ok {
		w.Quantity = v.(int)
	}
	if v, ok := fields["category"]; ok {
		w.Category = v.(string)
	}
	if v, ok := fields["updated_at"]; ok {
		ts := v.(time.Time)
		w.UpdatedAt = &ts
	}
	return 1, nil
}

func (m *mockRepository) Delete(_ context.Context, ownerID, id string) (int64, error) {
	if w, ok := m.byID[id]; ok && w.OwnerID == ownerID {
		delete(m.byID, id)
		return 1, nil
	}
	return 0, nil
}

func (m *mockRepository) Count(_ context.Context, ownerID, category string) (int64, error) {
	m.countCalls++
	var count int64
	for _, w := range m.byID {
		if w.OwnerID != ownerID {
			continue
		}
		if category != "" && w.Category != category {
			continue
		}
		count++
	}
	return count, nil
}

func (m *mockRepository) DeleteByOwner(_ context.Context, ownerID string) (int64, error) {
	var deleted int64
	for id, w := range m.byID {
		if w.OwnerID == ownerID {
			delete(m.byID, id)
			deleted++
		}
	}
	return deleted, nil
}

var _ = Describe("WidgetService", func() {
	var (
		service *Service
		repo    *mockRepository
		mr      *miniredis.Miniredis
		ctx     context.Context
	)

	const owner = "owner-1"

	BeforeEach(func() {
		var err error
		mr, err = miniredis.Run()
		Expect(err).NotTo(HaveOccurred())

		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		repo = newMockRepository()
		service = NewService(repo, cache.NewWithClient(client, time.Minute), nil)
		ctx = context.Background()
	})

	AfterEach(func() {
		mr.Close()
	})

	Describe("Create", func() {
		It("assigns id, owner and created_at", func() {
			created, err := service.Create(ctx, owner, CreateWidgetDTO{
				Name:     "Sprocket",
				Price:    9.99,
				Quantity: 5,
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(created.ID).NotTo(BeEmpty())
			Expect(created.OwnerID).To(Equal(owner))
			Expect(created.CreatedAt).NotTo(BeZero())
			Expect(created.UpdatedAt).To(BeNil())
		})
	})

	Describe("List caching", func() {
		BeforeEach(func() {
			_, err := service.Create(ctx, owner, CreateWidgetDTO{Name: "w1", Price: 1, Quantity: 1})
			Expect(err).NotTo(HaveOccurred())
		})

		It("serves a repeated query from cache", func() {
			query := ListQuery{Skip: 0, Limit: 10}

			first, err := service.List(ctx, owner, query)
			Expect(err).NotTo(HaveOccurred())
			Expect(first).To(HaveLen(1))
			Expect(repo.listCalls).To(Equal(1))

			second, err := service.List(ctx, owner, query)
			Expect(err).NotTo(HaveOccurred())
			Expect(second).To(HaveLen(1))
			Expect(repo.listCalls).To(Equal(1))
		})

		It("caches distinct queries under distinct keys", func() {
			_, err := service.List(ctx, owner, ListQuery{Skip: 0, Limit: 10})
			Expect(err).NotTo(HaveOccurred())
			_, err = service.List(ctx, owner, ListQuery{Skip: 0, Limit: 5})
			Expect(err).NotTo(HaveOccurred())
			Expect(repo.listCalls).To(Equal(2))
		})

		It("refetches after the entry expires", func() {
			query := ListQuery{Skip: 0, Limit: 10}
			_, err := service.List(ctx, owner, query)
			Expect(err).NotTo(HaveOccurred())

			mr.FastForward(2 * time.Minute)

			_, err = service.List(ctx, owner, query)
			Expect(err).NotTo(HaveOccurred())
			Expect(repo.listCalls).To(Equal(2))
		})

		It("invalidates on create", func() {
			query := ListQuery{Skip: 0, Limit: 10}
			_, err := service.List(ctx, owner, query)
			Expect(err).NotTo(HaveOccurred())

			_, err = service.Create(ctx, owner, CreateWidgetDTO{Name: "w2", Price: 2, Quantity: 2})
			Expect(err).NotTo(HaveOccurred())

			fresh, err := service.List(ctx, owner, query)
			Expect(err).NotTo(HaveOccurred())
			Expect(fresh).To(HaveLen(2))
			Expect(repo.listCalls).To(Equal(2))
		})

		It("does not invalidate other owners' entries", func() {
			otherQuery := ListQuery{Skip: 0, Limit: 10}
			_, err := service.Create(ctx, "owner-2", CreateWidgetDTO{Name: "x", Price: 1, Quantity: 1})
			Expect(err).NotTo(HaveOccurred())
			_, err = service.List(ctx, "owner-2", otherQuery)
			Expect(err).NotTo(HaveOccurred())

			_, err = service.Create(ctx, owner, CreateWidgetDTO{Name: "w2", Price: 2, Quantity: 2})
			Expect(err).NotTo(HaveOccurred())

			_, err = service.List(ctx, "owner-2", otherQuery)
			Expect(err).NotTo(HaveOccurred())
			// owner-2's entry was still warm.
			Expect(repo.listCalls).To(Equal(1))
		})
	})

	Describe("Count caching", func() {
		It("serves a repeated count from cache and invalidates on delete", func() {
			created, err := service.Create(ctx, owner, CreateWidgetDTO{Name: "w1", Price: 1, Quantity: 1})
			Expect(err).NotTo(HaveOccurred())

			count, err := service.Count(ctx, owner, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(int64(1)))

			_, err = service.Count(ctx, owner, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(repo.countCalls).To(Equal(1))

			Expect(service.Delete(ctx, owner, created.ID)).To(Succeed())

			count, err = service.Count(ctx, owner, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(BeZero())
			Expect(repo.countCalls).To(Equal(2))
		})
	})

	Describe("Get", func() {
		It("always reads through to the repository", func() {
			created, err := service.Create(ctx, owner, CreateWidgetDTO{Name: "w1", Price: 1, Quantity: 1})
			Expect(err).NotTo(HaveOccurred())

			loaded, err := service.Get(ctx, owner, created.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Name).To(Equal("w1"))
		})

		It("returns not found for another owner", func() {
			created, err := service.Create(ctx, owner, CreateWidgetDTO{Name: "w1", Price: 1, Quantity: 1})
			Expect(err).NotTo(HaveOccurred())

			_, err = service.Get(ctx, "owner-2", created.ID)
			Expect(err).To(Equal(ErrWidgetNotFound))
		})
	})

	Describe("Update", func() {
		It("applies only the provided fields and stamps updated_at", func() {
			created, err := service.Create(ctx, owner, CreateWidgetDTO{Name: "w1", Price: 1, Quantity: 1})
			Expect(err).NotTo(HaveOccurred())

			price := 42.0
			updated, err := service.Update(ctx, owner, created.ID, UpdateWidgetDTO{Price: &price})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Price).To(Equal(42.0))
			Expect(updated.Name).To(Equal("w1"))
			Expect(updated.UpdatedAt).NotTo(BeNil())
		})

		It("performs no write for an empty patch", func() {
			created, err := service.Create(ctx, owner, CreateWidgetDTO{Name: "w1", Price: 1, Quantity: 1})
			Expect(err).NotTo(HaveOccurred())

			updated, err := service.Update(ctx, owner, created.ID, UpdateWidgetDTO{})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Name).To(Equal("w1"))
			Expect(updated.UpdatedAt).To(BeNil())
			Expect(repo.updateCalls).To(BeZero())
		})

		It("returns not found when no row matches", func() {
			price := 1.0
			_, err := service.Update(ctx, owner, "missing", UpdateWidgetDTO{Price: &price})
			Expect(err).To(Equal(ErrWidgetNotFound))
		})
	})

	Describe("Delete", func() {
		It("returns not found when no row matches", func() {
			Expect(service.Delete(ctx, owner, "missing")).To(Equal(ErrWidgetNotFound))
		})
	})

	Describe("PurgeOwner", func() {
		It("removes every widget the owner holds", func() {
			_, err := service.Create(ctx, owner, CreateWidgetDTO{Name: "w1", Price: 1, Quantity: 1})
			Expect(err).NotTo(HaveOccurred())
			_, err = service.Create(ctx, owner, CreateWidgetDTO{Name: "w2", Price: 1, Quantity: 1})
			Expect(err).NotTo(HaveOccurred())

			Expect(service.PurgeOwner(ctx, owner)).To(Succeed())

			remaining, err := service.List(ctx, owner, ListQuery{Skip: 0, Limit: 10})
			Expect(err).NotTo(HaveOccurred())
			Expect(remaining).To(BeEmpty())
		})
	})

	Describe("degraded cache", func() {
		It("keeps serving from the repository when Redis is down", func() {
			_, err := service.Create(ctx, owner, CreateWidgetDTO{Name: "w1", Price: 1, Quantity: 1})
			Expect(err).NotTo(HaveOccurred())

			mr.Close()

			widgets, err := service.List(ctx, owner, ListQuery{Skip: 0, Limit: 10})
			Expect(err).NotTo(HaveOccurred())
			Expect(widgets).To(HaveLen(1))
		})
	})
})
