// Package autoattach supervises the usbipd processes keeping devices attached to WSL.
package autoattach

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/lxc/incus/v6/shared/revert"

	"github.com/nickbeth/wsl-usb-manager/internal/usbipd"
)

// ErrNotBound is returned when adding a device that has no persisted GUID.
var ErrNotBound = errors.New("the device does not have a persisted GUID, are you sure it's bound?")

// ErrDuplicate is returned when the device already has an auto-attach profile.
var ErrDuplicate = errors.New("the device is already in the auto attach list")

// ErrClosed is returned when adding a device after Shutdown.
var ErrClosed = errors.New("the auto attach supervisor was shut down")

// Profile identifies a device kept attached. Two profiles are the same if
// their IDs match, regardless of the description.
type Profile struct {
	ID          string `json:"id"          yaml:"id"`
	Description string `json:"description" yaml:"description"`
}

// Attacher is the subset of usbipd.Client used by the Supervisor.
type Attacher interface {
	Attach(ctx context.Context, d usbipd.Device) error
	Wait(ctx context.Context, d usbipd.Device, cond usbipd.Predicate) error
	PrepareAutoAttach(ctx context.Context, d usbipd.Device) (usbipd.Launcher, error)
}

// Supervisor owns the auto-attach profiles and their usbipd processes.
type Supervisor struct {
	attacher Attacher

	mu        sync.Mutex
	closed    bool
	profiles  map[string]Profile
	processes map[string]usbipd.Process
}

// NewSupervisor returns an empty Supervisor.
func NewSupervisor(attacher Attacher) *Supervisor {
	return &Supervisor{
		attacher:  attacher,
		profiles:  map[string]Profile{},
		processes: map[string]usbipd.Process{},
	}
}

// Add starts keeping the device attached. The device must be bound.
//
// The auto-attach process may fail in the background without notice, so
// the device is attached in the foreground first to surface any error.
// On failure nothing is registered. Only spawning the process happens
// with the supervisor locked, usbipd queries run before.
func (s *Supervisor) Add(ctx context.Context, d usbipd.Device) error {
	if d.PersistedGUID == "" {
		return ErrNotBound
	}

	if !d.IsAttached() {
		err := s.attacher.Attach(ctx, d)
		if err != nil {
			return err
		}

		err = s.attacher.Wait(ctx, d, usbipd.Attached)
		if err != nil {
			return err
		}
	}

	launch, err := s.attacher.PrepareAutoAttach(ctx, d)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	_, ok := s.profiles[d.PersistedGUID]
	if ok {
		return ErrDuplicate
	}

	reverter := revert.New()
	defer reverter.Fail()

	s.profiles[d.PersistedGUID] = Profile{ID: d.PersistedGUID, Description: d.Description}
	reverter.Add(func() { delete(s.profiles, d.PersistedGUID) })

	process, err := launch()
	if err != nil {
		return err
	}

	s.processes[d.PersistedGUID] = process

	slog.InfoContext(ctx, "Auto-attach enabled", "guid", d.PersistedGUID, "description", d.Description)

	reverter.Success()

	return nil
}

// Remove stops keeping the profile's device attached. Removing an unknown
// profile is a no-op. Failing to stop the process isn't reported.
func (s *Supervisor) Remove(p Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.profiles, p.ID)

	process, ok := s.processes[p.ID]
	if !ok {
		return nil
	}

	delete(s.processes, p.ID)

	err := process.Stop()
	if err != nil {
		slog.Warn("Failed to stop auto-attach process", "guid", p.ID, "err", err)
	}

	slog.Info("Auto-attach disabled", "guid", p.ID)

	return nil
}

// Profiles returns the current profiles, ordered by description then ID.
func (s *Supervisor) Profiles() []Profile {
	s.mu.Lock()
	defer s.mu.Unlock()

	profiles := make([]Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		profiles = append(profiles, p)
	}

	slices.SortFunc(profiles, func(a Profile, b Profile) int {
		return cmp.Or(cmp.Compare(a.Description, b.Description), cmp.Compare(a.ID, b.ID))
	})

	return profiles
}

// Shutdown stops every supervised process. The Supervisor can't be used afterwards.
func (s *Supervisor) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, process := range s.processes {
		err := process.Stop()
		if err != nil {
			slog.Warn("Failed to stop auto-attach process", "guid", id, "err", err)
		}
	}

	clear(s.processes)
	clear(s.profiles)
	s.closed = true
}
