package device

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

var testTenant = Tenant{Service: "smartgondor", Subservice: "/gardens"}

func testCatalog() *Catalog {
	c := NewCatalog()
	c.Load(testTenant, []TypeDefinition{
		{
			Name:   "Light",
			Lazy:   []AttributeDefinition{{Name: "temperature", Type: "centigrades"}},
			Active: []AttributeDefinition{{Name: "pressure", Type: "Hgmm"}},
		},
		{
			Name: "Termometer",
			Lazy: []AttributeDefinition{{Name: "temp", Type: "kelvin"}},
		},
	})
	return c
}

// recordingNotifier captures lifecycle events for assertions.
type recordingNotifier struct {
	mu      sync.Mutex
	ensured []Device
	removed []Device
}

func (n *recordingNotifier) DeviceEnsured(_ context.Context, d Device, _ TypeDefinition) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ensured = append(n.ensured, d)
}

func (n *recordingNotifier) DeviceRemoved(_ context.Context, d Device) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.removed = append(n.removed, d)
}

func (n *recordingNotifier) ensuredCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.ensured)
}

func newTestRegistry(t *testing.T) (*Registry, *recordingNotifier) {
	t.Helper()
	notifier := &recordingNotifier{}
	r := NewRegistry(testCatalog(), NewMemoryRepository())
	r.SetNotifier(notifier)
	return r, notifier
}

func TestRegistryEnsureCreates(t *testing.T) {
	r, notifier := newTestRegistry(t)

	d, err := r.Ensure(context.Background(), testTenant, "light1", "Light")
	if err != nil {
		t.Fatalf("Ensure() error: %v", err)
	}
	if d.ID != "light1" || d.Type != "Light" {
		t.Errorf("unexpected device: %+v", d)
	}
	if d.CreatedAt.IsZero() || d.UpdatedAt.IsZero() {
		t.Error("timestamps not set")
	}
	if got := notifier.ensuredCount(); got != 1 {
		t.Errorf("notifier called %d times, want 1", got)
	}
}

func TestRegistryEnsureIdempotent(t *testing.T) {
	r, notifier := newTestRegistry(t)
	ctx := context.Background()

	first, err := r.Ensure(ctx, testTenant, "light1", "Light")
	if err != nil {
		t.Fatalf("first Ensure() error: %v", err)
	}
	second, err := r.Ensure(ctx, testTenant, "light1", "Light")
	if err != nil {
		t.Fatalf("second Ensure() error: %v", err)
	}

	if !first.CreatedAt.Equal(second.CreatedAt) {
		t.Error("repeat Ensure produced a new record")
	}
	if got := notifier.ensuredCount(); got != 1 {
		t.Errorf("notifier called %d times, want 1", got)
	}
}

func TestRegistryEnsureTypeMismatch(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	if _, err := r.Ensure(ctx, testTenant, "light1", "Light"); err != nil {
		t.Fatalf("Ensure() error: %v", err)
	}
	if _, err := r.Ensure(ctx, testTenant, "light1", "Termometer"); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("expected ErrTypeMismatch, got %v", err)
	}
}

func TestRegistryEnsureUnknownType(t *testing.T) {
	r, notifier := newTestRegistry(t)

	if _, err := r.Ensure(context.Background(), testTenant, "motion1", "Motion"); !errors.Is(err, ErrTypeNotFound) {
		t.Errorf("expected ErrTypeNotFound, got %v", err)
	}
	if got := notifier.ensuredCount(); got != 0 {
		t.Errorf("notifier called %d times for failed creation", got)
	}
}

func TestRegistryEnsureInvalidInput(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	if _, err := r.Ensure(ctx, testTenant, "", "Light"); !errors.Is(err, ErrInvalidDevice) {
		t.Errorf("empty id: expected ErrInvalidDevice, got %v", err)
	}
	if _, err := r.Ensure(ctx, testTenant, "light1", ""); !errors.Is(err, ErrInvalidDevice) {
		t.Errorf("empty type: expected ErrInvalidDevice, got %v", err)
	}
}

func TestRegistryTenantIsolation(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()
	other := Tenant{Service: "smartcity", Subservice: "/streets"}
	r.catalog.Load(other, []TypeDefinition{{Name: "Light"}})

	if _, err := r.Ensure(ctx, testTenant, "light1", "Light"); err != nil {
		t.Fatalf("Ensure() error: %v", err)
	}

	if _, err := r.Find(ctx, other, "light1"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("expected ErrDeviceNotFound across tenants, got %v", err)
	}

	// Same id in another tenant is a distinct device.
	if _, err := r.Ensure(ctx, other, "light1", "Light"); err != nil {
		t.Errorf("Ensure() in second tenant error: %v", err)
	}

	devices, err := r.List(ctx, testTenant)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(devices) != 1 {
		t.Errorf("List() returned %d devices, want 1", len(devices))
	}
}

func TestRegistryRemove(t *testing.T) {
	r, notifier := newTestRegistry(t)
	ctx := context.Background()

	if _, err := r.Ensure(ctx, testTenant, "light1", "Light"); err != nil {
		t.Fatalf("Ensure() error: %v", err)
	}
	r.ApplyValues(testTenant, "light1", []Attribute{{Name: "dimming", Value: float64(12)}})

	if err := r.Remove(ctx, testTenant, "light1"); err != nil {
		t.Fatalf("Remove() error: %v", err)
	}

	if _, err := r.Find(ctx, testTenant, "light1"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("expected ErrDeviceNotFound after removal, got %v", err)
	}
	if got := r.LastValues(testTenant, "light1"); got != nil {
		t.Errorf("values survived removal: %+v", got)
	}
	if len(notifier.removed) != 1 || notifier.removed[0].ID != "light1" {
		t.Errorf("unexpected removal notifications: %+v", notifier.removed)
	}

	if err := r.Remove(ctx, testTenant, "light1"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("second Remove() = %v, want ErrDeviceNotFound", err)
	}
}

func TestRegistrySchema(t *testing.T) {
	r, _ := newTestRegistry(t)

	d, err := r.Ensure(context.Background(), testTenant, "light1", "Light")
	if err != nil {
		t.Fatalf("Ensure() error: %v", err)
	}
	def, err := r.Schema(d)
	if err != nil {
		t.Fatalf("Schema() error: %v", err)
	}
	if def.Name != "Light" || len(def.Lazy) != 1 || def.Lazy[0].Name != "temperature" {
		t.Errorf("unexpected schema: %+v", def)
	}
}

func TestRegistryApplyValuesLastWriteWins(t *testing.T) {
	r, _ := newTestRegistry(t)

	r.ApplyValues(testTenant, "light1", []Attribute{
		{Name: "dimming", Type: "Percentage", Value: float64(12)},
	})
	r.ApplyValues(testTenant, "light1", []Attribute{
		{Name: "dimming", Type: "Percentage", Value: float64(19)},
		{Name: "pressure", Type: "Hgmm", Value: float64(720)},
	})

	values := r.LastValues(testTenant, "light1")
	if len(values) != 2 {
		t.Fatalf("expected 2 values, got %d", len(values))
	}
	byName := make(map[string]Attribute, len(values))
	for _, v := range values {
		byName[v.Name] = v
	}
	if byName["dimming"].Value != float64(19) {
		t.Errorf("dimming = %v, want 19", byName["dimming"].Value)
	}
	if byName["pressure"].Value != float64(720) {
		t.Errorf("pressure = %v, want 720", byName["pressure"].Value)
	}
}

// blockingNotifier parks inside DeviceEnsured until released, to observe
// whether registry locks are held across the notification.
type blockingNotifier struct {
	entered chan struct{}
	release chan struct{}
}

func (n *blockingNotifier) DeviceEnsured(context.Context, Device, TypeDefinition) {
	close(n.entered)
	<-n.release
}

func (n *blockingNotifier) DeviceRemoved(context.Context, Device) {}

func TestRegistryEnsureDoesNotBlockOnNotifier(t *testing.T) {
	notifier := &blockingNotifier{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	defer close(notifier.release)

	r := NewRegistry(testCatalog(), NewMemoryRepository())
	r.SetNotifier(notifier)
	ctx := context.Background()

	go func() {
		_, _ = r.Ensure(ctx, testTenant, "light1", "Light")
	}()
	<-notifier.entered

	// The first Ensure is parked in the notifier; a second request for the
	// same device must still complete.
	done := make(chan error, 1)
	go func() {
		_, err := r.Ensure(ctx, testTenant, "light1", "Light")
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("concurrent Ensure() error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Ensure blocked while the lifecycle notifier was busy")
	}
}

func TestRegistryConcurrentEnsureSingleCreation(t *testing.T) {
	r, notifier := newTestRegistry(t)
	ctx := context.Background()

	const workers = 16
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Ensure(ctx, testTenant, "light1", "Light"); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent Ensure() error: %v", err)
	}
	if got := notifier.ensuredCount(); got != 1 {
		t.Errorf("notifier called %d times, want exactly 1", got)
	}
}
