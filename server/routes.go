// go-morpheus
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-morpheus.
//
// go-morpheus is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-morpheus is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-morpheus; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package server

import (
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"

	morpheus "github.com/ZaparooProject/go-morpheus"
	"github.com/ZaparooProject/go-morpheus/instructions"
	"github.com/fxamacker/cbor/v2"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const mimeCBOR = "application/cbor"

type commandRequest struct {
	Payload string `json:"payload" binding:"required"`
}

func (s *Server) registerRoutes() {
	s.router.GET("/version", s.handleVersion)
	s.router.POST("/command", s.handleCommand)

	s.router.GET("/healthz", func(c *gin.Context) {
		select {
		case <-s.link.Done():
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "stopped",
				"port":   s.link.PortName(),
			})
		default:
			c.JSON(http.StatusOK, gin.H{
				"status": "ok",
				"port":   s.link.PortName(),
				"uptime": time.Since(s.started).String(),
				"stats":  s.link.Stats(),
			})
		}
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))
}

// handleVersion asks the controller for its firmware version. No answer in
// time is an empty 200.
func (s *Server) handleVersion(c *gin.Context) {
	fb, err := s.client.Request(c.Request.Context(), instructions.GetVersion{}, s.requestTimeout)
	switch {
	case errors.Is(err, morpheus.ErrResponseTimeout):
		c.Status(http.StatusOK)
		return
	case errors.Is(err, morpheus.ErrChannelClosed):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "link closed"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	version, ok := fb.(instructions.Version)
	if !ok {
		c.JSON(http.StatusBadGateway, gin.H{"error": "unexpected feedback " + fb.FeedbackName()})
		return
	}

	if strings.Contains(c.GetHeader("Accept"), mimeCBOR) {
		data, err := cbor.Marshal(version)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Data(http.StatusOK, mimeCBOR, data)
		return
	}
	c.JSON(http.StatusOK, version)
}

// handleCommand queues a raw payload given as hex
func (s *Server) handleCommand(c *gin.Context) {
	var req commandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	payload, err := hex.DecodeString(strings.ReplaceAll(req.Payload, " ", ""))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "payload must be hex: " + err.Error()})
		return
	}

	err = s.client.Send(c.Request.Context(), instructions.Raw{Payload: payload})
	switch {
	case err == nil:
		c.JSON(http.StatusAccepted, gin.H{"queued": len(payload)})
	case errors.Is(err, morpheus.ErrPayloadTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
	case errors.Is(err, morpheus.ErrChannelClosed):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "link closed"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
