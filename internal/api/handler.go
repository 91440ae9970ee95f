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

package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	modbus "github.com/hootrhino/rtuframe"
	"github.com/hootrhino/rtuframe/internal/history"
	"github.com/hootrhino/rtuframe/internal/metrics"
)

// invalidLabel replaces unparsable input in metric labels.
const invalidLabel = "invalid"

// Handler serves frame building, conversion and history endpoints.
type Handler struct {
	enc     modbus.Encoder
	history history.Log
	metrics *metrics.AppMetrics
	logger  *zap.Logger
}

// NewHandler creates the API handler. metrics may be nil.
func NewHandler(enc modbus.Encoder, log history.Log, m *metrics.AppMetrics, logger *zap.Logger) *Handler {
	return &Handler{enc: enc, history: log, metrics: m, logger: logger}
}

type buildFrameRequest struct {
	UnitAddress  int    `json:"unitAddress"`
	FunctionCode string `json:"functionCode"`
	StartAddress string `json:"startAddress"`
	Payload      string `json:"payload"`
	Comment      string `json:"comment"`
}

type frameResponse struct {
	Hex     string           `json:"hex"`
	Bytes   []int            `json:"bytes"`
	View    modbus.FrameView `json:"view"`
	EntryID string           `json:"entryId,omitempty"`
}

type convertRequest struct {
	Value     *float64 `json:"value" binding:"required"`
	Format    string   `json:"format"`
	ByteOrder string   `json:"byteOrder"`
}

type convertResponse struct {
	Hex   string `json:"hex"`
	Bytes []int  `json:"bytes"`
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

type functionCodeInfo struct {
	Code string `json:"code"`
	Name string `json:"name"`
	Read bool   `json:"read"`
}

// BuildFrame builds a frame and records it in the history.
func (h *Handler) BuildFrame(c *gin.Context) {
	var body buildFrameRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	fc, parseErr := modbus.ParseFunctionCode(body.FunctionCode)
	req := modbus.FrameRequest{
		UnitAddress:  body.UnitAddress,
		Function:     fc,
		StartAddress: body.StartAddress,
		Payload:      body.Payload,
	}
	frame, err := h.enc.Build(req)
	if parseErr != nil && modbus.ErrorField(err) == modbus.FieldFunctionCode {
		err = parseErr
	}
	label := fc.String()
	if parseErr != nil {
		label = invalidLabel
	}
	h.metrics.ObserveFrame(label, err)
	if err != nil {
		h.logger.Debug("frame rejected", zap.String("field", modbus.ErrorField(err)), zap.Error(err))
		h.writeError(c, err)
		return
	}

	resp := frameResponse{Hex: frame.Hex(), Bytes: toInts(frame.Bytes), View: frame.View}
	entry := history.NewEntry(req, frame, body.Comment)
	if err := h.history.Append(c.Request.Context(), entry); err != nil {
		h.logger.Error("history append failed", zap.Error(err))
	} else {
		resp.EntryID = entry.ID
		h.refreshHistorySize(c)
	}
	c.JSON(http.StatusOK, resp)
}

// Convert renders a numeric value as payload bytes.
func (h *Handler) Convert(c *gin.Context) {
	var body convertRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	out, err := h.enc.Convert(modbus.ConversionRequest{
		Value:  *body.Value,
		Format: modbus.DataFormat(body.Format),
		Order:  modbus.ByteOrder(body.ByteOrder),
	})
	label := invalidLabel
	if f, ferr := modbus.ParseDataFormat(body.Format); ferr == nil {
		label = string(f)
	}
	h.metrics.ObserveConversion(label, err)
	if err != nil {
		h.logger.Debug("conversion rejected", zap.String("field", modbus.ErrorField(err)), zap.Error(err))
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, convertResponse{Hex: modbus.FormatHex(out), Bytes: toInts(out)})
}

// FunctionCodes lists the supported function codes.
func (h *Handler) FunctionCodes(c *gin.Context) {
	codes := modbus.FunctionCodes()
	out := make([]functionCodeInfo, 0, len(codes))
	for _, fc := range codes {
		out = append(out, functionCodeInfo{Code: fc.String(), Name: fc.Name(), Read: fc.IsRead()})
	}
	c.JSON(http.StatusOK, gin.H{"functionCodes": out})
}

// ListHistory returns the history, newest first.
func (h *Handler) ListHistory(c *gin.Context) {
	entries, err := h.history.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	c.JSON(http.StatusOK, gin.H{"count": len(entries), "entries": entries})
}

// GetHistory returns one entry.
func (h *Handler) GetHistory(c *gin.Context) {
	entry, err := h.history.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// DeleteHistory removes one entry.
func (h *Handler) DeleteHistory(c *gin.Context) {
	if err := h.history.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	h.refreshHistorySize(c)
	c.Status(http.StatusNoContent)
}

// ClearHistory removes every entry.
func (h *Handler) ClearHistory(c *gin.Context) {
	if err := h.history.Clear(c.Request.Context()); err != nil {
		h.writeError(c, err)
		return
	}
	h.metrics.SetHistorySize(0)
	c.Status(http.StatusNoContent)
}

// ReplayHistory rebuilds the frame of a stored entry without recording it again.
func (h *Handler) ReplayHistory(c *gin.Context) {
	frame, entry, err := history.Replay(c.Request.Context(), h.history, h.enc, c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, frameResponse{Hex: frame.Hex(), Bytes: toInts(frame.Bytes), View: frame.View, EntryID: entry.ID})
}

func (h *Handler) refreshHistorySize(c *gin.Context) {
	if n, err := h.history.Len(c.Request.Context()); err == nil {
		h.metrics.SetHistorySize(n)
	}
}

// writeError maps request errors to 422 with the offending field.
func (h *Handler) writeError(c *gin.Context, err error) {
	if field := modbus.ErrorField(err); field != "" {
		c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: err.Error(), Field: field})
		return
	}
	if errors.Is(err, history.ErrNotFound) {
		c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	}
	h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
}

func toInts(b []byte) []int {
	out := make([]int, len(b))
	for i, v := range b {
		out[i] = int(v)
	}
	return out
}
