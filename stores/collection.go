// Package stores keeps the ordered set of store profiles and persists it,
// together with application settings and saved search results.
package stores

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/aluiziolira/go-scrape-stores/models"
)

var (
	// ErrDuplicateStore is returned when a profile name is already taken.
	ErrDuplicateStore = errors.New("stores: duplicate store name")
	// ErrIndexOutOfRange is returned for an index outside the collection.
	ErrIndexOutOfRange = errors.New("stores: index out of range")
	// ErrInvalidProfile wraps validator failures from Add and Update.
	ErrInvalidProfile = errors.New("stores: invalid profile")
)

// Validator decides whether a profile may enter the collection.
type Validator func(models.StoreProfile) error

// Collection is an ordered, concurrency-safe list of store profiles. Names
// are unique ignoring case.
type Collection struct {
	mu       sync.RWMutex
	profiles []models.StoreProfile
	validate Validator
}

// NewCollection wraps profiles as loaded from storage. Loaded profiles are
// kept as-is; validation applies to Add and Update. A nil validator falls
// back to StoreProfile.Validate.
func NewCollection(profiles []models.StoreProfile, validate Validator) *Collection {
	if validate == nil {
		validate = models.StoreProfile.Validate
	}
	out := make([]models.StoreProfile, len(profiles))
	copy(out, profiles)
	return &Collection{profiles: out, validate: validate}
}

// Add appends profile after validating it and returns its index.
func (c *Collection) Add(profile models.StoreProfile) (int, error) {
	if err := c.validate(profile); err != nil {
		return -1, fmt.Errorf("add store: %w: %w", ErrInvalidProfile, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexOfLocked(profile.Name); i >= 0 {
		return -1, fmt.Errorf("%w: %q", ErrDuplicateStore, profile.Name)
	}
	c.profiles = append(c.profiles, profile)
	return len(c.profiles) - 1, nil
}

// Update replaces the profile at index.
func (c *Collection) Update(index int, profile models.StoreProfile) error {
	if err := c.validate(profile); err != nil {
		return fmt.Errorf("update store: %w: %w", ErrInvalidProfile, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkIndexLocked(index); err != nil {
		return err
	}
	if i := c.indexOfLocked(profile.Name); i >= 0 && i != index {
		return fmt.Errorf("%w: %q", ErrDuplicateStore, profile.Name)
	}
	c.profiles[index] = profile
	return nil
}

// Remove deletes and returns the profile at index.
func (c *Collection) Remove(index int) (models.StoreProfile, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkIndexLocked(index); err != nil {
		return models.StoreProfile{}, err
	}
	removed := c.profiles[index]
	c.profiles = append(c.profiles[:index], c.profiles[index+1:]...)
	return removed, nil
}

// Get returns the profile at index.
func (c *Collection) Get(index int) (models.StoreProfile, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := c.checkIndexLocked(index); err != nil {
		return models.StoreProfile{}, err
	}
	return c.profiles[index], nil
}

// Find returns the index of the profile named name, ignoring case.
func (c *Collection) Find(name string) (int, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i := c.indexOfLocked(name)
	return i, i >= 0
}

// Len returns the number of profiles.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.profiles)
}

// All returns a copy of every profile in order.
func (c *Collection) All() []models.StoreProfile {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.StoreProfile, len(c.profiles))
	copy(out, c.profiles)
	return out
}

// Replace swaps in profiles without validating them, as when restoring a
// previous All snapshot.
func (c *Collection) Replace(profiles []models.StoreProfile) {
	out := make([]models.StoreProfile, len(profiles))
	copy(out, profiles)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.profiles = out
}

// Enabled returns the enabled profiles in order.
func (c *Collection) Enabled() []models.StoreProfile {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.StoreProfile, 0, len(c.profiles))
	for _, profile := range c.profiles {
		if profile.Enabled {
			out = append(out, profile)
		}
	}
	return out
}

func (c *Collection) checkIndexLocked(index int) error {
	if index < 0 || index >= len(c.profiles) {
		return fmt.Errorf("%w: %d (have %d)", ErrIndexOutOfRange, index, len(c.profiles))
	}
	return nil
}

func (c *Collection) indexOfLocked(name string) int {
	name = strings.TrimSpace(name)
	for i, profile := range c.profiles {
		if strings.EqualFold(strings.TrimSpace(profile.Name), name) {
			return i
		}
	}
	return -1
}
