// Copyright (C) 2024  wwhai
//
// This program is free software; you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; either version 2 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License along
// with this program; if not, see <https://www.gnu.org/licenses/>.

// Package history keeps a capacity-bounded, newest-first log of generated frames.
package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	modbus "github.com/hootrhino/rtuframe"
)

// DefaultCapacity is the number of entries kept when none is configured.
const DefaultCapacity = 50

// ErrNotFound is returned for an unknown entry ID.
var ErrNotFound = errors.New("history entry not found")

// Entry is one generated frame together with the request that produced it.
type Entry struct {
	ID        string              `json:"id"`
	Timestamp time.Time           `json:"timestamp"`
	Request   modbus.FrameRequest `json:"request"`
	View      modbus.FrameView    `json:"view"`
	Hex       string              `json:"hex"`
	Comment   string              `json:"comment,omitempty"`
}

// NewEntry records frame, built from req, under a fresh ID.
func NewEntry(req modbus.FrameRequest, frame *modbus.Frame, comment string) Entry {
	return Entry{
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
		Request:   req,
		View:      frame.View,
		Hex:       frame.Hex(),
		Comment:   comment,
	}
}

// Log is an append-only, capacity-bounded frame history. Appending to a full
// log evicts the oldest entry. List returns the newest entry first.
type Log interface {
	Append(ctx context.Context, e Entry) error
	List(ctx context.Context) ([]Entry, error)
	Get(ctx context.Context, id string) (Entry, error)
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
	Len(ctx context.Context) (int, error)
}

// Replay rebuilds the frame of a stored entry.
func Replay(ctx context.Context, log Log, enc modbus.Encoder, id string) (*modbus.Frame, Entry, error) {
	e, err := log.Get(ctx, id)
	if err != nil {
		return nil, Entry{}, err
	}
	frame, err := enc.Build(e.Request)
	if err != nil {
		return nil, e, fmt.Errorf("replay %s: %w", id, err)
	}
	return frame, e, nil
}

func normalizeCapacity(capacity int) int {
	if capacity <= 0 {
		return DefaultCapacity
	}
	return capacity
}
