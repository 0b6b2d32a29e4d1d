package connectors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/connprobe/internal/domain/connector"
	"github.com/turtacn/connprobe/pkg/errors"
)

type stubConnector struct{ connector.Base }

func (stubConnector) Open(context.Context) (connector.Session, error) { return nil, nil }

func stubFactory(spec connector.Spec) (connector.Connector, error) {
	return stubConnector{connector.Base{Spec: spec}}, nil
}

func TestDefaultRegistry_Kinds(t *testing.T) {
	r := DefaultRegistry()
	for _, k := range []connector.Kind{
		connector.KindPostgres, connector.KindRedis, connector.KindNeo4j,
		connector.KindMinIO, connector.KindOpenSearch, connector.KindMilvus,
		connector.KindKafka, connector.KindGRPC, connector.KindHTTP,
	} {
		assert.True(t, r.Supports(k), k)
	}
	assert.True(t, r.Supports("Postgres"))
	assert.False(t, r.Supports("mysql"))
	assert.Len(t, r.Kinds(), 9)
}

func TestBuild_OrderAndLookup(t *testing.T) {
	r := NewRegistry()
	r.Register("stub", stubFactory)

	cat, err := r.Build([]connector.Spec{
		{Name: "Search", Kind: "STUB"},
		{Name: " cache ", Kind: "stub"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Search", "cache"}, cat.Names())
	assert.Equal(t, 2, cat.Len())

	c, ok := cat.Lookup("SEARCH")
	require.True(t, ok)
	assert.Equal(t, "Search", c.Name())
	assert.Equal(t, connector.Kind("stub"), c.Kind())

	_, ok = cat.Lookup("queue")
	assert.False(t, ok)
}

func TestBuild_Rejects(t *testing.T) {
	r := NewRegistry()
	r.Register("stub", stubFactory)

	_, err := r.Build([]connector.Spec{{Name: "a", Kind: "stub"}, {Name: "A", Kind: "stub"}})
	assert.True(t, errors.IsCode(err, errors.CodeConflict))

	_, err = r.Build([]connector.Spec{{Name: "a", Kind: "mysql"}})
	assert.True(t, errors.IsCode(err, errors.ErrCodeConnectorMisconf))

	_, err = r.Build([]connector.Spec{{Name: "  ", Kind: "stub"}})
	assert.True(t, errors.IsCode(err, errors.ErrCodeConnectorMisconf))
}

func TestBuild_DriverValidationPropagates(t *testing.T) {
	_, err := DefaultRegistry().Build([]connector.Spec{{Name: "pg", Kind: connector.KindPostgres}})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeConnectorMisconf))
	assert.Contains(t, err.Error(), "connector pg")
}

func TestBuild_BuiltInDrivers(t *testing.T) {
	cat, err := DefaultRegistry().Build([]connector.Spec{
		{Name: "pg", Kind: connector.KindPostgres, Endpoint: "localhost:5432", Username: "u", Database: "d"},
		{Name: "web", Kind: connector.KindHTTP, Endpoint: "localhost:8080/healthz"},
	})
	require.NoError(t, err)
	c, ok := cat.Lookup("WEB")
	require.True(t, ok)
	assert.Equal(t, connector.KindHTTP, c.Kind())
}

func TestNilCatalog(t *testing.T) {
	var c *Catalog
	_, ok := c.Lookup("x")
	assert.False(t, ok)
	assert.Nil(t, c.Names())
	assert.Equal(t, 0, c.Len())
}

//Personal.AI order the ending
