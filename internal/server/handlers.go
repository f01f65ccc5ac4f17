package server

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mesh-intelligence/larder/pkg/larder"
	"github.com/mesh-intelligence/larder/pkg/schema"
	"github.com/mesh-intelligence/larder/pkg/store"
	"github.com/mesh-intelligence/larder/pkg/types"
)

// tableInfo describes one registered model.
type tableInfo struct {
	Entity     string         `json:"entity"`
	Table      string         `json:"table"`
	Identifier string         `json:"identifier"`
	Fields     []string       `json:"fields"`
	Relations  []relationInfo `json:"relations"`
}

type relationInfo struct {
	Name        string `json:"name"`
	Target      string `json:"target"`
	ForeignKey  string `json:"foreign_key"`
	Cardinality string `json:"cardinality"`
}

func describe(m *schema.Model) tableInfo {
	info := tableInfo{
		Entity:     m.EntityType(),
		Table:      m.Table(),
		Identifier: m.Identifier(),
		Fields:     m.Fields(),
		Relations:  []relationInfo{},
	}
	for _, r := range m.Relations() {
		info.Relations = append(info.Relations, relationInfo{
			Name:        r.Name,
			Target:      r.Target,
			ForeignKey:  r.ForeignKey,
			Cardinality: r.Cardinality.String(),
		})
	}
	return info
}

func (s *Server) handleTables(c echo.Context) error {
	out := []tableInfo{}
	for _, m := range s.db.Registry().Models() {
		out = append(out, describe(m))
	}
	return ok(c, out)
}

// query builds a Query for the :table parameter with the include
// parameters applied.
func (s *Server) query(c echo.Context) (*larder.Repository, *larder.Query, error) {
	r, err := s.db.RepositoryForTable(c.Param("table"))
	if err != nil {
		return nil, nil, err
	}
	var paths []string
	for _, v := range c.QueryParams()["include"] {
		paths = append(paths, strings.Split(v, ",")...)
	}
	return r, r.Queryable().IncludePaths(paths...), nil
}

func (s *Server) handleGet(c echo.Context) error {
	_, q, err := s.query(c)
	if err != nil {
		return s.fail(c, err)
	}
	v, err := q.GetByID(c.Request().Context(), larder.ParseValue(c.Param("id")))
	if err != nil {
		return s.fail(c, err)
	}
	return ok(c, v)
}

func (s *Server) handleList(c echo.Context) error {
	_, q, err := s.query(c)
	if err != nil {
		return s.fail(c, err)
	}
	var filters []string
	for key, values := range c.QueryParams() {
		if key == "include" {
			continue
		}
		for _, v := range values {
			filters = append(filters, key+"="+v)
		}
	}
	views, err := q.Filter(filters...).GetAll(c.Request().Context())
	if err != nil {
		return s.fail(c, err)
	}
	return ok(c, views)
}

// bindRecord decodes the request body only; path parameters stay out of
// the record.
func (s *Server) bindRecord(c echo.Context) (types.Record, error) {
	rec := types.Record{}
	if err := (&echo.DefaultBinder{}).BindBody(c, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Server) handleCreate(c echo.Context) error {
	r, err := s.db.RepositoryForTable(c.Param("table"))
	if err != nil {
		return s.fail(c, err)
	}
	rec, err := s.bindRecord(c)
	if err != nil {
		return badRequest(c, "invalid JSON body")
	}
	if err := r.Create(c.Request().Context(), rec); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusCreated, rec)
}

func (s *Server) handlePut(c echo.Context) error {
	r, err := s.db.RepositoryForTable(c.Param("table"))
	if err != nil {
		return s.fail(c, err)
	}
	rec, err := s.bindRecord(c)
	if err != nil {
		return badRequest(c, "invalid JSON body")
	}
	rec[r.Model().Identifier()] = larder.ParseValue(c.Param("id"))
	if err := r.CreateOrUpdate(c.Request().Context(), rec); err != nil {
		return s.fail(c, err)
	}
	return ok(c, rec)
}

func (s *Server) handleDelete(c echo.Context) error {
	r, err := s.db.RepositoryForTable(c.Param("table"))
	if err != nil {
		return s.fail(c, err)
	}
	if err := r.DeleteByID(c.Request().Context(), larder.ParseValue(c.Param("id"))); err != nil {
		return s.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleDump(c echo.Context) error {
	d, err := s.db.Dump(c.Request().Context())
	if err != nil {
		return s.fail(c, err)
	}
	return ok(c, d)
}

func (s *Server) handleLoad(c echo.Context) error {
	d := store.Dump{}
	if err := (&echo.DefaultBinder{}).BindBody(c, &d); err != nil {
		return badRequest(c, "invalid dump")
	}
	if err := s.db.Load(c.Request().Context(), d); err != nil {
		return s.fail(c, err)
	}
	return ok(c, echo.Map{"loaded": len(d)})
}
