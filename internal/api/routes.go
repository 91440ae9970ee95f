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

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the API under /api behind mw.
func (h *Handler) RegisterRoutes(r gin.IRouter, mw ...gin.HandlerFunc) {
	g := r.Group("/api", mw...)
	g.GET("/function-codes", h.FunctionCodes)
	g.POST("/frames", h.BuildFrame)
	g.POST("/conversions", h.Convert)

	g.GET("/history", h.ListHistory)
	g.DELETE("/history", h.ClearHistory)
	g.GET("/history/:id", h.GetHistory)
	g.DELETE("/history/:id", h.DeleteHistory)
	g.POST("/history/:id/replay", h.ReplayHistory)
}
