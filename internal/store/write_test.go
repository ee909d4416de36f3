package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/scenecore/internal/field"
	"github.com/roach88/scenecore/internal/ir"
)

func TestWriteCascadeIdempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	c := createTestCascade("c1", "A.out", 0.5, 3)
	require.NoError(t, s.WriteCascade(ctx, c))
	require.NoError(t, s.WriteCascade(ctx, c), "duplicate token is ignored")

	c.Origin = "changed"
	require.NoError(t, s.WriteCascade(ctx, c))

	got, err := s.ReadCascade(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "A.out", got.Origin, "first write wins")
}

func TestWriteDeliveryRoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.WriteCascade(ctx, createTestCascade("c1", "A.out", 1, 1)))

	values := []field.Value{
		field.SFBool(true),
		field.SFInt32(-7),
		field.SFFloat(0.25),
		field.SFTime(12.5),
		field.SFString("héllo <b>"),
		field.SFVec3f{1, 2, 3},
		field.SFColor{0.8, 0.8, 0.8},
		field.SFRotation{0, 0, 1, 1.5},
		field.SFNode{ID: 4},
		field.SFNode{},
		field.MFNode{{ID: 1}, {ID: 2}},
		field.MFFloat{0, 0.5, 1},
		field.MFString{"a", "b"},
	}
	for i, v := range values {
		d := createTestDelivery("c1", int64(i+2), i, v)
		require.NoError(t, s.WriteDelivery(ctx, d))

		got, err := s.ReadDelivery(ctx, d.ID)
		require.NoError(t, err)
		eq, err := field.Equal(v, got.Value)
		require.NoError(t, err)
		assert.True(t, eq, "value %d: want %v, got %v", i, v, got.Value)
		assert.Equal(t, d.Source(), got.Source())
		assert.Equal(t, d.Target(), got.Target())
		assert.Equal(t, d.Depth, got.Depth)
	}
}

func TestWriteDeliveryDirectSend(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.WriteCascade(ctx, createTestCascade("c1", "B.in", 1, 1)))

	d := ir.Delivery{
		ID:           field.DeliveryID("c1", 2),
		CascadeToken: "c1",
		Seq:          2,
		Timestamp:    1,
		DstNode:      2,
		DstName:      "B",
		DstEvent:     "in",
		Value:        field.SFBool(true),
	}
	require.NoError(t, s.WriteDelivery(ctx, d))

	got, err := s.ReadDelivery(ctx, d.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Source())
	assert.Equal(t, field.NodeID(0), got.SrcNode)
}

func TestWriteDeliveryRequiresCascade(t *testing.T) {
	s := createTestStore(t)
	err := s.WriteDelivery(context.Background(), createTestDelivery("missing", 1, 0, field.SFBool(true)))
	require.Error(t, err, "foreign key enforced")
	assert.Contains(t, err.Error(), "write delivery")
}

func TestWriteDeliveryRejectsNilValue(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.WriteCascade(ctx, createTestCascade("c1", "A.out", 1, 1)))

	err := s.WriteDelivery(ctx, createTestDelivery("c1", 2, 0, nil))
	require.Error(t, err)
}

func TestWriteTraceAtomic(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	c := createTestCascade("c1", "A.out", 1, 1)
	good := createTestDelivery("c1", 2, 0, field.SFBool(true))
	bad := createTestDelivery("c1", 3, 1, nil)

	err := s.WriteTrace(ctx, c, []ir.Delivery{good, bad})
	require.Error(t, err)

	cascades, err := s.ReadAllCascades(ctx)
	require.NoError(t, err)
	assert.Empty(t, cascades, "failed trace leaves nothing behind")

	require.NoError(t, s.WriteTrace(ctx, c, []ir.Delivery{good}))
	deliveries, err := s.ReadDeliveries(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, deliveries, 1)
}

func TestWriteTraceRejectsForeignDelivery(t *testing.T) {
	s := createTestStore(t)
	err := s.WriteTrace(context.Background(),
		createTestCascade("c1", "A.out", 1, 1),
		[]ir.Delivery{createTestDelivery("c2", 2, 0, field.SFBool(true))},
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "belongs to cascade")
}
