package repository

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/juju/errors"
	"gopkg.in/yaml.v3"

	"jeeptrack-service/internal/domain/entity"
	"jeeptrack-service/internal/domain/repository"
)

// DirectoryDocument is the YAML layout of the reference data file.
type DirectoryDocument struct {
	Routes   []RouteDocument  `yaml:"routes" validate:"required,dive"`
	Drivers  []entity.Driver  `yaml:"drivers" validate:"dive"`
	Jeepneys []entity.Jeepney `yaml:"jeepneys" validate:"dive"`
}

// RouteDocument is one route with its checkpoints in any order.
type RouteDocument struct {
	ID          string              `yaml:"id" validate:"required"`
	Name        string              `yaml:"name" validate:"required"`
	Checkpoints []entity.Checkpoint `yaml:"checkpoints" validate:"required,min=1,dive"`
}

// LoadDirectoryFile reads and validates a directory document from disk.
func LoadDirectoryFile(path string) (*DirectoryDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory file: %w", err)
	}
	var doc DirectoryDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse directory file: %w", err)
	}
	return &doc, nil
}

// MemoryDirectoryRepository serves reference data from memory. It is built
// once at startup and never mutated.
type MemoryDirectoryRepository struct {
	routes      map[string]entity.Route
	sequences   map[string]*entity.CheckpointSequence
	checkpoints map[string]entity.Checkpoint
	drivers     map[string]entity.Driver
	jeepneys    map[string]entity.Jeepney
}

// NewMemoryDirectoryRepository validates doc and indexes it. Checkpoint ids
// must be unique across routes and sequence indexes unique within a route.
func NewMemoryDirectoryRepository(doc *DirectoryDocument) (repository.DirectoryRepository, error) {
	if err := validator.New().Struct(doc); err != nil {
		return nil, errors.NotValidf("directory: %v", err)
	}

	r := &MemoryDirectoryRepository{
		routes:      make(map[string]entity.Route),
		sequences:   make(map[string]*entity.CheckpointSequence),
		checkpoints: make(map[string]entity.Checkpoint),
		drivers:     make(map[string]entity.Driver),
		jeepneys:    make(map[string]entity.Jeepney),
	}

	for _, rd := range doc.Routes {
		if _, dup := r.routes[rd.ID]; dup {
			return nil, errors.NotValidf("duplicate route %q", rd.ID)
		}
		r.routes[rd.ID] = entity.Route{ID: rd.ID, Name: rd.Name}

		seen := make(map[int]bool)
		cps := make([]entity.Checkpoint, 0, len(rd.Checkpoints))
		for _, cp := range rd.Checkpoints {
			if seen[cp.SequenceIndex] {
				return nil, errors.NotValidf("route %q sequence %d used twice", rd.ID, cp.SequenceIndex)
			}
			if _, dup := r.checkpoints[cp.ID]; dup {
				return nil, errors.NotValidf("duplicate checkpoint %q", cp.ID)
			}
			seen[cp.SequenceIndex] = true
			cp.RouteID = rd.ID
			r.checkpoints[cp.ID] = cp
			cps = append(cps, cp)
		}
		sort.Slice(cps, func(i, j int) bool { return cps[i].SequenceIndex < cps[j].SequenceIndex })
		r.sequences[rd.ID] = &entity.CheckpointSequence{RouteID: rd.ID, Checkpoints: cps}
	}

	for _, d := range doc.Drivers {
		r.drivers[d.ID] = d
	}
	for _, j := range doc.Jeepneys {
		r.jeepneys[j.ID] = j
	}
	return r, nil
}

// NewYAMLDirectoryRepository loads path and builds a memory directory from it.
func NewYAMLDirectoryRepository(path string) (repository.DirectoryRepository, error) {
	doc, err := LoadDirectoryFile(path)
	if err != nil {
		return nil, err
	}
	return NewMemoryDirectoryRepository(doc)
}

func (r *MemoryDirectoryRepository) GetDriver(ctx context.Context, id string) (*entity.Driver, error) {
	d, ok := r.drivers[id]
	if !ok {
		return nil, errors.NotFoundf("driver %q", id)
	}
	return &d, nil
}

func (r *MemoryDirectoryRepository) GetJeepney(ctx context.Context, id string) (*entity.Jeepney, error) {
	j, ok := r.jeepneys[id]
	if !ok {
		return nil, errors.NotFoundf("jeepney %q", id)
	}
	return &j, nil
}

func (r *MemoryDirectoryRepository) GetRoute(ctx context.Context, id string) (*entity.Route, error) {
	rt, ok := r.routes[id]
	if !ok {
		return nil, errors.NotFoundf("route %q", id)
	}
	return &rt, nil
}

func (r *MemoryDirectoryRepository) GetCheckpoint(ctx context.Context, id string) (*entity.Checkpoint, error) {
	cp, ok := r.checkpoints[id]
	if !ok {
		return nil, errors.NotFoundf("checkpoint %q", id)
	}
	return &cp, nil
}

// GetCheckpointSequence returns a copy so callers may not disturb the index.
func (r *MemoryDirectoryRepository) GetCheckpointSequence(ctx context.Context, routeID string) (*entity.CheckpointSequence, error) {
	seq, ok := r.sequences[routeID]
	if !ok {
		return nil, errors.NotFoundf("route %q", routeID)
	}
	cps := make([]entity.Checkpoint, len(seq.Checkpoints))
	copy(cps, seq.Checkpoints)
	return &entity.CheckpointSequence{RouteID: routeID, Checkpoints: cps}, nil
}
