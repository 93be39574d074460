// Package tzreg resolves zone names to loaded zones and caches them for
// the lifetime of the process. It implements the name resolution rules of
// CCTZ's time_zone_info.cc Load(name) and the concurrent load protocol:
// a reader takes a fast path on cache hit; a cache miss does its I/O
// outside any lock and only takes a write lock to install the result,
// re-checking in case another goroutine won the race.
package tzreg

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/maypok86/otter/v2"
	"github.com/sirupsen/logrus"

	"github.com/ngrash/go-tz/fixedzone"
	"github.com/ngrash/go-tz/tzif"
	"github.com/ngrash/go-tz/zoneinfo"
)

// Kind discriminates the two possible payloads a Handle carries.
type Kind int

const (
	// KindFixed is a zone with a single, unchanging offset.
	KindFixed Kind = iota
	// KindInfo is a full zoneinfo transition table.
	KindInfo
)

// Handle is a loaded, cached zone. It is immutable once installed, so it is
// safe to share across goroutines without further synchronization.
type Handle struct {
	Name  string
	Kind  Kind
	Fixed fixedzone.Zone
	Info  *zoneinfo.Info

	// Negative marks a Handle that was bound to UTC because loading name
	// failed. It still satisfies Kind == KindFixed with a zero offset,
	// but callers can use this to distinguish "asked for UTC" from
	// "asked for something invalid and got UTC anyway".
	Negative bool
}

// Registry is a process-wide, name-to-zone cache. The zero value is not
// usable; use New.
type Registry struct {
	mu    sync.Mutex
	cache *otter.Cache[string, *Handle]

	utcOnce   sync.Once
	utcHandle *Handle

	// TZDir and LocalTime default to the standard IANA zoneinfo tree
	// locations but can be overridden, mainly for tests.
	TZDir     string
	LocalTime string
}

// New returns a Registry backed by an unbounded (no-eviction) cache: once a
// zone is loaded, it lives for the lifetime of the Registry, matching
// CCTZ's process-wide zone cache.
func New() *Registry {
	cache := otter.Must(&otter.Options[string, *Handle]{
		InitialCapacity: 32,
	})
	return &Registry{
		cache:     cache,
		TZDir:     "/usr/share/zoneinfo",
		LocalTime: "/etc/localtime",
	}
}

var defaultRegistry = New()

// Load resolves and caches name using the process-wide default Registry.
func Load(name string) (*Handle, bool) {
	return defaultRegistry.Load(name)
}

// Load resolves name to a Handle. The second return value is false when
// name could not be loaded and UTC was substituted; the substitution is
// itself cached, so repeated lookups of a bad name never re-enter the
// loader.
func (r *Registry) Load(name string) (*Handle, bool) {
	r.utcOnce.Do(func() {
		r.utcHandle = &Handle{Name: "UTC", Kind: KindFixed, Fixed: fixedzone.Zone{}}
		r.cache.Set("UTC", r.utcHandle)
	})

	if h, ok := r.cache.GetIfPresent(name); ok {
		return h, !h.Negative
	}

	// Do the actual I/O outside any lock: this can be a syscall or a
	// full tzfile parse, and must not block other lookups.
	h, err := r.loadFromSource(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	// Another goroutine may have installed name while we were loading.
	if existing, ok := r.cache.GetIfPresent(name); ok {
		return existing, !existing.Negative
	}

	if err != nil {
		logrus.WithField("zone", name).WithError(err).Warn("tzreg: binding unknown zone to UTC")
		neg := &Handle{Name: name, Kind: KindFixed, Fixed: fixedzone.Zone{}, Negative: true}
		r.cache.Set(name, neg)
		return neg, false
	}

	h.Name = name
	r.cache.Set(name, h)
	return h, true
}

var (
	errColonInName = errors.New("tzreg: zone name must not contain ':'")
	errEmptyName   = errors.New("tzreg: zone name must not be empty")
)

// loadFromSource resolves and loads name with no caching, following the
// same resolution order as CCTZ's TimeZoneInfo::Load(name):
//
//   - "" fails immediately: an empty name is never a valid zone.
//   - "UTC" synthesizes the fixed UTC zone.
//   - A name starting with '/' is an absolute path to a tzfile.
//   - "localtime" reads $LOCALTIME, defaulting to /etc/localtime.
//   - Anything else is joined with $TZDIR (default /usr/share/zoneinfo).
func (r *Registry) loadFromSource(name string) (*Handle, error) {
	if name == "" {
		return nil, errEmptyName
	}
	if name == "UTC" {
		return &Handle{Kind: KindFixed, Fixed: fixedzone.Zone{}}, nil
	}
	if strings.Contains(name, ":") {
		return nil, errColonInName
	}
	if z, ok := fixedzone.Parse(name); ok {
		return &Handle{Kind: KindFixed, Fixed: z}, nil
	}

	var path string
	switch {
	case strings.HasPrefix(name, "/"):
		path = name
	case name == "localtime":
		path = envOr("LOCALTIME", r.LocalTime)
	default:
		path = filepath.Join(envOr("TZDIR", r.TZDir), name)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	tzData, err := tzif.DecodeData(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	info, err := zoneinfo.Build(name, tzData)
	if err != nil {
		return nil, err
	}
	return &Handle{Kind: KindInfo, Info: info}, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// LocalZoneName returns the name of the process's local zone as named by
// the TZ environment variable, with a leading ':' stripped (the POSIX
// convention meaning "the rest of this string is an implementation-defined
// path, not a POSIX TZ spec"). Returns "" (meaning "consult /etc/localtime")
// when TZ is unset.
func LocalZoneName() string {
	tz := os.Getenv("TZ")
	return strings.TrimPrefix(tz, ":")
}
