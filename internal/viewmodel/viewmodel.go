// Package viewmodel drives the location pager: it loads saved locations,
// optionally resolves the device position into a saved row, fans out one
// weather request per location and exposes the result as observable State.
package viewmodel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/weather-companion/internal/locator"
	"github.com/i474232898/weather-companion/internal/store"
	"github.com/i474232898/weather-companion/internal/weather"
)

// ErrPageOutOfRange is returned by OnPageChanged for an index past the list.
var ErrPageOutOfRange = errors.New("page index out of range")

// WeatherFetcher returns current conditions for a location.
type WeatherFetcher interface {
	Current(ctx context.Context, loc weather.Location) (weather.Snapshot, error)
}

// Settings is the slice of the settings store the view-model needs.
type Settings interface {
	AllowGPS(ctx context.Context) (bool, error)
	SetAllowGPS(ctx context.Context, allow bool) error
}

// Deps are the collaborators of a ViewModel. Cache and Logger are optional.
type Deps struct {
	Repo     store.LocationRepository
	Settings Settings
	Fetcher  WeatherFetcher
	Position locator.PositionSource
	Geocoder locator.Geocoder
	Cache    *store.SnapshotCache
	Logger   *slog.Logger
}

// Options tune timing.
type Options struct {
	// LoadingDebounce is how long after the last fetch completes the loading flag clears.
	LoadingDebounce time.Duration
	// FetchTimeout bounds each weather request; 0 leaves it to the HTTP client.
	FetchTimeout time.Duration
}

// ViewModel owns State. All mutations go through mutate, which publishes
// the new state to subscribers while holding the lock.
type ViewModel struct {
	deps Deps
	opts Options
	log  *slog.Logger

	mu    sync.Mutex
	state State

	// sources records the location each snapshot in state.Weather was fetched for.
	sources    map[int]weather.Location
	clearTimer *time.Timer
	clearGen   uint64
	subs       map[int]chan State
	nextSub    int
	closed     bool

	inflight sync.WaitGroup
}

// New creates a ViewModel in the loading state, as the pager starts.
func New(deps Deps, opts Options) *ViewModel {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Cache == nil {
		deps.Cache = store.NewSnapshotCache(1, 0)
	}
	return &ViewModel{
		deps: deps,
		opts: opts,
		log:  logger.With("component", "viewmodel"),
		state: State{
			Loading:    true,
			Locations:  []weather.Location{weather.NewPlaceholder()},
			Weather:    make(map[int]weather.Snapshot),
			Background: weather.Unknown60,
			UpdatedAt:  time.Now().UTC(),
		},
		sources: make(map[int]weather.Location),
		subs:    make(map[int]chan State),
	}
}

// State returns a copy of the current state.
func (vm *ViewModel) State() State {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.state.clone()
}

// Subscribe returns a channel that receives the current state immediately and
// every change after it. Slow readers only see the latest state.
func (vm *ViewModel) Subscribe() (<-chan State, func()) {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	ch := make(chan State, 1)
	if vm.closed {
		close(ch)
		return ch, func() {}
	}
	id := vm.nextSub
	vm.nextSub++
	vm.subs[id] = ch
	ch <- vm.state.clone()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			vm.mu.Lock()
			defer vm.mu.Unlock()
			if c, ok := vm.subs[id]; ok {
				delete(vm.subs, id)
				close(c)
			}
		})
	}
}

// mutate applies fn under the lock and publishes the result.
func (vm *ViewModel) mutate(fn func(s *State)) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.mutateLocked(fn)
}

func (vm *ViewModel) mutateLocked(fn func(s *State)) {
	fn(&vm.state)
	vm.state.UpdatedAt = time.Now().UTC()
	vm.publishLocked()
}

func (vm *ViewModel) publishLocked() {
	snapshot := vm.state.clone()
	for _, ch := range vm.subs {
		select {
		case ch <- snapshot:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snapshot:
			default:
			}
		}
	}
}

// startLoadingLocked sets the loading flag and cancels any pending clear.
func (vm *ViewModel) startLoadingLocked(s *State) {
	s.Loading = true
	vm.clearGen++
	if vm.clearTimer != nil {
		vm.clearTimer.Stop()
		vm.clearTimer = nil
	}
}

// armLoadingClear (re)starts the debounce that ends the loading state.
// Each fetch completion calls it, so loading clears one debounce after the last one.
func (vm *ViewModel) armLoadingClear() {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.closed {
		return
	}

	if vm.clearTimer != nil {
		vm.clearTimer.Stop()
	}
	vm.clearGen++
	gen := vm.clearGen
	vm.clearTimer = time.AfterFunc(vm.opts.LoadingDebounce, func() {
		vm.mu.Lock()
		defer vm.mu.Unlock()
		if gen != vm.clearGen || vm.closed {
			return
		}
		vm.clearTimer = nil
		vm.mutateLocked(func(s *State) { s.Loading = false })
	})
}

// OnAppear resets the pager to its first page and loads everything.
func (vm *ViewModel) OnAppear(ctx context.Context) error {
	vm.mutate(func(s *State) {
		vm.startLoadingLocked(s)
		s.Page = 0
	})
	return vm.LoadAllData(ctx)
}

// OnClickRefresh reloads locations and weather.
func (vm *ViewModel) OnClickRefresh(ctx context.Context) error {
	return vm.LoadAllData(ctx)
}

// LoadAllData resolves the device location first when the user allowed GPS,
// then loads the saved locations. A failed resolution only logs.
func (vm *ViewModel) LoadAllData(ctx context.Context) error {
	allow, err := vm.deps.Settings.AllowGPS(ctx)
	if err != nil {
		vm.log.Warn("could not read gps consent", "error", err)
		allow = false
	}

	if allow {
		if _, err := vm.resolveAndPersist(ctx); err != nil {
			vm.log.Warn("current location not saved, showing saved locations", "error", err)
		}
	}
	return vm.LoadLocations(ctx)
}

// LoadLocations reads the saved rows, lays them out for the pager and
// starts a weather refresh.
func (vm *ViewModel) LoadLocations(ctx context.Context) error {
	rows, err := vm.deps.Repo.List(ctx)
	if err != nil {
		vm.log.Error("failed to load locations", "error", err)
		vm.armLoadingClear()
		return fmt.Errorf("load locations: %w", err)
	}

	list := arrangeLocations(rows)
	vm.mutate(func(s *State) {
		s.Locations = list
		if s.Page >= len(list) {
			s.Page = len(list) - 1
		}
	})

	vm.RefreshWeather(ctx)
	return nil
}

// RefreshWeather issues one independent fetch per non-placeholder location
// and returns the id of the refresh cycle. It does not wait for the fetches.
// A failed fetch keeps the location's previous snapshot.
func (vm *ViewModel) RefreshWeather(ctx context.Context) string {
	cycle := uuid.NewString()

	var (
		targets []weather.Location
		idxs    []int
	)

	vm.mu.Lock()
	vm.mutateLocked(func(s *State) {
		vm.startLoadingLocked(s)
		s.Cycle = cycle

		keep := make(map[int]struct{})
		for _, loc := range s.Locations {
			if loc.IsPlaceholder() {
				continue
			}
			targets = append(targets, loc)
			// A row rewritten in place names another place; its old weather goes.
			if src, ok := vm.sources[loc.Idx]; ok && !src.SamePlace(loc) {
				continue
			}
			keep[loc.Idx] = struct{}{}
			idxs = append(idxs, loc.Idx)
		}
		for idx := range s.Weather {
			if _, ok := keep[idx]; !ok {
				delete(s.Weather, idx)
			}
		}
		for idx := range vm.sources {
			if _, ok := keep[idx]; !ok {
				delete(vm.sources, idx)
			}
		}
		s.Background = pageColor(s)
	})
	vm.deps.Cache.Retain(idxs)
	vm.mu.Unlock()

	vm.log.Debug("refreshing weather", "cycle", cycle, "locations", len(targets))

	if len(targets) == 0 {
		vm.armLoadingClear()
		return cycle
	}

	// Fetches outlive the caller's request.
	base := context.WithoutCancel(ctx)
	for _, loc := range targets {
		vm.inflight.Add(1)
		go func(loc weather.Location) {
			defer vm.inflight.Done()
			defer vm.armLoadingClear()
			vm.fetchOne(base, cycle, loc)
		}(loc)
	}
	return cycle
}

func (vm *ViewModel) fetchOne(ctx context.Context, cycle string, loc weather.Location) {
	if vm.opts.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, vm.opts.FetchTimeout)
		defer cancel()
	}

	snap, err := vm.deps.Fetcher.Current(ctx, loc)
	if err != nil {
		vm.log.Warn("weather fetch failed",
			"cycle", cycle,
			"location", loc.Key(),
			"error", err,
		)
		return
	}

	vm.mu.Lock()
	defer vm.mu.Unlock()

	if !listed(vm.state.Locations, loc) {
		vm.log.Debug("dropping weather for a location no longer listed", "cycle", cycle, "location", loc.Key())
		return
	}

	vm.deps.Cache.Save(loc.Idx, snap)
	vm.sources[loc.Idx] = loc
	vm.mutateLocked(func(s *State) {
		s.Weather[loc.Idx] = snap
		s.Background = pageColor(s)
	})
	vm.log.Debug("weather updated", "cycle", cycle, "location", loc.Key(), "icon", snap.Icon)
}

// listed reports whether loc is still in the list with the same place.
func listed(locs []weather.Location, loc weather.Location) bool {
	for _, l := range locs {
		if l.Idx == loc.Idx {
			return l.SamePlace(loc)
		}
	}
	return false
}

// pageColor themes the current page from its snapshot, unknown60 without one.
func pageColor(s *State) weather.Color {
	if s.Page < 0 || s.Page >= len(s.Locations) {
		return weather.Unknown60
	}
	if snap, ok := s.Weather[s.Locations[s.Page].Idx]; ok {
		return weather.ColorForSnapshot(&snap)
	}
	return weather.Unknown60
}

// ResolveCurrentLocationAndPersist saves the device location as the pending
// row and reloads. It fails without touching storage when no position is
// available or the geocoder has no name for it; the state is kept as is and
// loading ends.
func (vm *ViewModel) ResolveCurrentLocationAndPersist(ctx context.Context) error {
	if _, err := vm.resolveAndPersist(ctx); err != nil {
		vm.armLoadingClear()
		return err
	}
	return vm.LoadLocations(ctx)
}

func (vm *ViewModel) resolveAndPersist(ctx context.Context) (weather.Location, error) {
	pos, err := vm.deps.Position.Current(ctx)
	if err != nil {
		return weather.Location{}, fmt.Errorf("device position: %w", err)
	}

	vm.mutate(func(s *State) { vm.startLoadingLocked(s) })
	vm.log.Debug("resolving current location", "latitude", pos.Latitude, "longitude", pos.Longitude)

	name, err := vm.deps.Geocoder.Locality(ctx, pos.Latitude, pos.Longitude)
	if err != nil {
		return weather.Location{}, fmt.Errorf("reverse geocode: %w", err)
	}

	loc, updated, err := vm.deps.Repo.UpsertCurrent(ctx, name, pos.Latitude, pos.Longitude)
	if err != nil {
		return weather.Location{}, fmt.Errorf("save current location: %w", err)
	}
	vm.log.Info("current location saved", "location", loc.Key(), "updated", updated)
	return loc, nil
}

// AddLocation saves a location picked from the city catalog and reloads.
func (vm *ViewModel) AddLocation(ctx context.Context, name string, dbIndex int, latitude, longitude float64) (weather.Location, error) {
	loc, err := vm.deps.Repo.Add(ctx, name, dbIndex, latitude, longitude)
	if err != nil {
		return weather.Location{}, fmt.Errorf("add location: %w", err)
	}
	vm.mutate(func(s *State) { vm.startLoadingLocked(s) })
	if err := vm.LoadLocations(ctx); err != nil {
		return loc, err
	}
	return loc, nil
}

// OnPageChanged selects a page and themes the background from its weather icon.
func (vm *ViewModel) OnPageChanged(index int) (weather.Color, error) {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	if index < 0 || index >= len(vm.state.Locations) {
		return weather.Color{}, fmt.Errorf("%w: %d", ErrPageOutOfRange, index)
	}

	var color weather.Color
	vm.mutateLocked(func(s *State) {
		s.Page = index
		s.Background = pageColor(s)
		color = s.Background
	})
	return color, nil
}

// EnableGPS handles the user's answer to "use current location?". Without
// location permission the feature stays off and false is returned.
func (vm *ViewModel) EnableGPS(ctx context.Context, consent bool) (bool, error) {
	if !vm.deps.Position.Authorized() {
		vm.log.Info("location permission not granted, gps stays disabled")
		return false, nil
	}
	if !consent {
		return vm.deps.Settings.AllowGPS(ctx)
	}

	if err := vm.deps.Settings.SetAllowGPS(ctx, true); err != nil {
		return false, fmt.Errorf("save gps consent: %w", err)
	}
	if err := vm.LoadAllData(ctx); err != nil {
		return true, err
	}
	return true, nil
}

// Wait blocks until every fetch started so far has finished.
func (vm *ViewModel) Wait() {
	vm.inflight.Wait()
}

// Close stops the loading timer and closes all subscriptions.
func (vm *ViewModel) Close() {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.closed {
		return
	}
	vm.closed = true
	if vm.clearTimer != nil {
		vm.clearTimer.Stop()
	}
	for id, ch := range vm.subs {
		delete(vm.subs, id)
		close(ch)
	}
}
