// Copyright 2022 The MaxMQ Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package api

import (
	"net/http"

	"github.com/gsalomao/maxiot/reliability"
	"github.com/gsalomao/maxiot/retry"
	"github.com/labstack/echo/v4"
)

type connectionsResponse struct {
	Connections []reliability.Status `json:"connections"`
}

type policiesResponse struct {
	Policies []string `json:"policies"`
}

func (s *HTTPServer) registerRoutes() {
	s.RouteV1.GET("/connections", s.listConnections)
	s.RouteV1.GET("/connections/:id", s.getConnection)
	s.RouteV1.GET("/policies", s.listPolicies)
}

func (s *HTTPServer) listConnections(c echo.Context) error {
	conns := s.registry.Connections()
	resp := connectionsResponse{
		Connections: make([]reliability.Status, 0, len(conns)),
	}

	for _, conn := range conns {
		st := conn.Status()
		st.Messages = nil
		resp.Connections = append(resp.Connections, st)
	}

	return c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) getConnection(c echo.Context) error {
	conn, ok := s.registry.Connection(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "Connection not found")
	}

	return c.JSON(http.StatusOK, conn.Status())
}

func (s *HTTPServer) listPolicies(c echo.Context) error {
	policies := retry.Policies()
	resp := policiesResponse{Policies: make([]string, 0, len(policies))}

	for _, p := range policies {
		resp.Policies = append(resp.Policies, p.String())
	}

	return c.JSON(http.StatusOK, resp)
}
