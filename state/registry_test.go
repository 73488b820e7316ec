package state

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hupe1980/avmkit/blob"
)

func TestNewRegistry_Placement(t *testing.T) {
	reg, err := NewRegistry(Local, []Decl{
		Blob("ledger", 8),
		DynamicBytes("offers", 4, func(input []byte) uint32 { return uint32(input[0]) }),
		Uint64("counter"),
		Bytes("admin").Key(0x40),
	}, WithSlotSize(16))
	require.NoError(t, err)

	// 1. Blob takes the lowest free run.
	cfg, err := reg.BlobConfig("ledger")
	require.NoError(t, err)
	require.Equal(t, uint32(16), cfg.PageSize)
	require.Equal(t, uint32(8), cfg.MaxKeys)
	require.Equal(t, []byte{0, 1, 2, 3, 4, 5, 6, 7}, cfg.Keys)

	// 2. Dynamic takes the next free run.
	infos := reg.Describe()
	require.Len(t, infos, 4)
	require.Equal(t, "offers", infos[1].Name)
	require.Equal(t, []int{8, 9, 10, 11}, infos[1].Keys)

	// 3. Auto value fills from the top; explicit value keeps its key.
	require.Equal(t, "counter", infos[2].Name)
	require.Equal(t, []int{255}, infos[2].Keys)
	require.Equal(t, "admin", infos[3].Name)
	require.Equal(t, []int{0x40}, infos[3].Keys)

	// 4. Schema counts by kind.
	require.Equal(t, Schema{NumUints: 1, NumByteSlices: 13}, reg.Schema())
}

func TestNewRegistry_KeyCollision(t *testing.T) {
	_, err := NewRegistry(Local, []Decl{
		Bytes("a").Key(3),
		Blob("b", 8), // would claim 0..7, including 3
	}, WithSlotSize(16))

	// Auto placement routes around explicit keys, so no collision here.
	require.NoError(t, err)

	_, err = NewRegistry(Local, []Decl{
		Bytes("a").Key(3),
		Blob("b", 8).Keys([]byte{0, 1, 2, 3, 4, 5, 6, 7}),
	}, WithSlotSize(16))

	var collision *KeyCollisionError
	require.ErrorAs(t, err, &collision)
	require.Equal(t, byte(3), collision.Key)
	require.Equal(t, "a", collision.First)
	require.Equal(t, "b", collision.Second)
}

func TestNewRegistry_AutoBlobRoutesAroundExplicitKeys(t *testing.T) {
	reg, err := NewRegistry(Local, []Decl{
		Bytes("pin").Key(2),
		Blob("pages", 4),
	}, WithSlotSize(16))
	require.NoError(t, err)

	cfg, err := reg.BlobConfig("pages")
	require.NoError(t, err)
	require.Equal(t, []byte{3, 4, 5, 6}, cfg.Keys)
}

func TestNewRegistry_SchemaCaps(t *testing.T) {
	// Local caps at 16 slots.
	_, err := NewRegistry(Local, []Decl{Blob("big", 17)}, WithSlotSize(16))
	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	require.Equal(t, Local, schemaErr.Kind)
	require.Equal(t, uint32(16), schemaErr.Max)

	// The same declaration fits the global scope.
	_, err = NewRegistry(Global, []Decl{Blob("big", 17)}, WithSlotSize(16))
	require.NoError(t, err)

	// Global caps at 64.
	_, err = NewRegistry(Global, []Decl{Blob("big", 65)}, WithSlotSize(16))
	require.ErrorAs(t, err, &schemaErr)
	require.Equal(t, uint32(64), schemaErr.Max)
}

func TestNewRegistry_InvalidDecls(t *testing.T) {
	tests := []struct {
		name  string
		decls []Decl
	}{
		{name: "empty name", decls: []Decl{Uint64("")}},
		{name: "duplicate name", decls: []Decl{Uint64("x"), Bytes("x")}},
		{name: "zero count dynamic", decls: []Decl{DynamicBytes("d", 0, func([]byte) uint32 { return 0 })}},
		{name: "nil key func", decls: []Decl{DynamicBytes("d", 2, nil)}},
		{name: "zero page blob", decls: []Decl{Blob("b", 0)}},
		{name: "blob key count mismatch", decls: []Decl{Blob("b", 3).Keys([]byte{1, 2})}},
		{name: "uint64 with bytes default", decls: []Decl{Uint64("u").DefaultBytes([]byte{1})}},
		{name: "bytes with uint default", decls: []Decl{Bytes("b").DefaultUint64(7)}},
		{name: "dynamic base wraps key space", decls: []Decl{DynamicBytes("d", 4, func([]byte) uint32 { return 0 }).Base(254)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(Local, tt.decls, WithSlotSize(16))
			require.Error(t, err)
			require.ErrorIs(t, err, ErrInvalidDecl)
		})
	}
}

func TestNewRegistry_SlotSizeFloor(t *testing.T) {
	_, err := NewRegistry(Local, nil, WithSlotSize(9))
	require.ErrorIs(t, err, ErrInvalidDecl)

	reg, err := NewRegistry(Local, nil)
	require.NoError(t, err)
	require.Equal(t, uint32(blob.DefaultPageSize), reg.SlotSize())
}

func TestRegistry_UnknownLookups(t *testing.T) {
	reg, err := NewRegistry(Local, []Decl{Uint64("x")}, WithSlotSize(16))
	require.NoError(t, err)

	_, err = reg.BlobConfig("nope")
	require.ErrorIs(t, err, ErrUnknownDecl)
}

func TestScopeKind_MaxKeys(t *testing.T) {
	require.Equal(t, uint32(blob.LocalMaxKeys), Local.MaxKeys())
	require.Equal(t, uint32(blob.GlobalMaxKeys), Global.MaxKeys())
}

func TestSchema_Add(t *testing.T) {
	sum := Schema{NumUints: 1, NumByteSlices: 2}.Add(Schema{NumUints: 3, NumByteSlices: 4})
	require.Equal(t, Schema{NumUints: 4, NumByteSlices: 6}, sum)
	require.Equal(t, uint32(10), sum.Total())
}
