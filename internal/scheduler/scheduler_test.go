package scheduler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elonfeng/aiscout/internal/store"
	"github.com/elonfeng/aiscout/pkg/alert"
	"github.com/elonfeng/aiscout/pkg/product"
	"github.com/elonfeng/aiscout/pkg/ranking"
	"github.com/elonfeng/aiscout/pkg/source"
)

var now = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

type staticSource struct {
	name    string
	records []product.Product
	err     error
}

func (s staticSource) Name() string { return s.name }

func (s staticSource) Collect(ctx context.Context) ([]product.Product, error) {
	return s.records, s.err
}

func newStore(t *testing.T, records ...product.Product) *store.FileStore {
	t.Helper()
	s, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)
	if len(records) > 0 {
		require.NoError(t, s.Save(context.Background(), records))
	}
	return s
}

func TestCollect(t *testing.T) {
	st := newStore(t, product.Product{Name: "Acme", Website: "https://acme.ai", DiscoveredAt: "2026-09-01"})

	sched := New(Options{
		Store: st,
		Sources: []source.Source{
			staticSource{name: "seeds", records: []product.Product{
				{Name: "Acme", Website: "https://acme.ai", SourceURL: "https://news.test/acme"},
				{Name: "Beam", Website: "https://beam.so"},
			}},
			staticSource{name: "down", err: errors.New("timeout")},
		},
		Now: func() time.Time { return now },
	})

	rep, err := sched.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Collected)
	assert.Equal(t, 1, rep.Added)
	assert.Equal(t, []string{"down"}, rep.Failed)

	stored, err := st.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "https://news.test/acme", stored[0].SourceURL)
	assert.Equal(t, "Beam", stored[1].Name)
	assert.Equal(t, "2026-10-15T12:00:00Z", stored[1].DiscoveredAt)
}

func TestAlertOncePerProduct(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	st := newStore(t,
		product.Product{ID: "p1", Name: "Quill", Website: "https://quill.legal", DarkHorseIndex: 5, DiscoveredAt: "2026-10-14"},
		product.Product{ID: "p2", Name: "Slow", Website: "https://slow.io", DarkHorseIndex: 1, DiscoveredAt: "2026-10-14"},
		product.Product{ID: "n1", Name: "Big news", ContentType: "news", DarkHorseIndex: 5, DiscoveredAt: "2026-10-14"},
	)

	sched := New(Options{
		Store:  st,
		Alerts: alert.NewManager([]alert.Notifier{alert.NewWebhook(srv.URL, "")}),
		Weekly: ranking.WeeklyOptions{MinIndex: 3},
		Now:    func() time.Time { return now },
	})

	sent, err := sched.Alert(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, int32(1), hits.Load())

	stored, err := st.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2026-10-15T12:00:00Z", stored[0].AlertedAt)
	assert.Empty(t, stored[1].AlertedAt)
	assert.Empty(t, stored[2].AlertedAt)

	sent, err = sched.Alert(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Equal(t, int32(1), hits.Load())
}

func TestAlertWithoutNotifiers(t *testing.T) {
	sched := New(Options{Store: newStore(t)})
	sent, err := sched.Alert(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)
}

func TestRunStopsOnCancel(t *testing.T) {
	st := newStore(t)
	sched := New(Options{
		Store:             st,
		Sources:           []source.Source{staticSource{name: "seeds", records: []product.Product{{Name: "Beam", Website: "https://beam.so"}}}},
		CollectInterval:   time.Hour,
		ReconcileInterval: time.Hour,
		Now:               func() time.Time { return now },
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sched.Run(ctx) }()

	require.Eventually(t, func() bool {
		weeks, err := st.Weeks(context.Background())
		return err == nil && len(weeks) == 1
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}

	stored, err := st.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.NotEmpty(t, stored[0].ID, "reconcile assigns ids")
}
