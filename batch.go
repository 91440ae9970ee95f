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

package modbus

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// FrameItem is a frame request with an optional free-text note.
type FrameItem struct {
	Request FrameRequest `yaml:",inline"`
	Comment string       `yaml:"comment,omitempty"`
}

// Batch groups frame requests and conversions loaded from a file.
type Batch struct {
	Frames      []FrameItem         `yaml:"frames"`
	Conversions []ConversionRequest `yaml:"conversions"`
}

// LoadBatchYAML decodes a batch document:
//
//	frames:
//	  - {unitAddress: 1, functionCode: "03", startAddress: "0000", payload: "1"}
//	conversions:
//	  - {value: 1.5, format: float32, byteOrder: CD AB}
func LoadBatchYAML(r io.Reader) (*Batch, error) {
	var b Batch
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&b); err != nil {
		if err == io.EOF {
			return &b, nil
		}
		return nil, fmt.Errorf("failed to decode batch: %w", err)
	}
	return &b, nil
}

// FrameResult is the outcome of one batch frame.
type FrameResult struct {
	Item  FrameItem
	Frame *Frame
	Err   error
}

// ConversionResult is the outcome of one batch conversion.
type ConversionResult struct {
	Request ConversionRequest
	Bytes   []byte
	Err     error
}

// BatchResult collects per-item outcomes; failures do not stop the batch.
type BatchResult struct {
	Frames      []FrameResult
	Conversions []ConversionResult
}

// Failed counts the items that returned an error.
func (r *BatchResult) Failed() int {
	n := 0
	for _, f := range r.Frames {
		if f.Err != nil {
			n++
		}
	}
	for _, c := range r.Conversions {
		if c.Err != nil {
			n++
		}
	}
	return n
}

// RunBatch builds every frame and conversion of b with enc.
func RunBatch(enc Encoder, b *Batch) *BatchResult {
	res := &BatchResult{
		Frames:      make([]FrameResult, 0, len(b.Frames)),
		Conversions: make([]ConversionResult, 0, len(b.Conversions)),
	}
	for _, item := range b.Frames {
		frame, err := enc.Build(item.Request)
		res.Frames = append(res.Frames, FrameResult{Item: item, Frame: frame, Err: err})
	}
	for _, req := range b.Conversions {
		out, err := enc.Convert(req)
		res.Conversions = append(res.Conversions, ConversionResult{Request: req, Bytes: out, Err: err})
	}
	return res
}
