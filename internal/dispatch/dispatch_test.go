package dispatch_test

import (
	"context"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vkreplay/vkreplay/driver"
	"github.com/vkreplay/vkreplay/internal/constants"
	"github.com/vkreplay/vkreplay/internal/dbfile"
	"github.com/vkreplay/vkreplay/internal/dispatch"
	"github.com/vkreplay/vkreplay/internal/entrystore"
	"github.com/vkreplay/vkreplay/internal/parser"
	"github.com/vkreplay/vkreplay/internal/vk"
	"github.com/vkreplay/vkreplay/internal/walker"
)

type dbBuilder struct {
	data []byte
}

func newDBBuilder() *dbBuilder {
	header := make([]byte, constants.HeaderSize)
	copy(header, constants.DatabaseMagic)
	header[constants.HeaderSize-1] = constants.ParserVersion
	return &dbBuilder{data: header}
}

// add appends one uncompressed record of tag/hash carrying payload, with
// a correct CRC32 of payload.
func (b *dbBuilder) add(tag uint32, hash uint64, payload []byte) *dbBuilder {
	crc := crc32.ChecksumIEEE(payload)

	b.data = append(b.data, make([]byte, 8)...) // reserved
	b.data = append(b.data, []byte(fmt.Sprintf("%08x%016x%016x", 0, tag, hash))...)

	var fields [16]byte
	binary.LittleEndian.PutUint32(fields[0:4], uint32(len(payload)))
	binary.LittleEndian.PutUint32(fields[4:8], 1) // raw
	binary.LittleEndian.PutUint32(fields[8:12], crc)
	binary.LittleEndian.PutUint32(fields[12:16], uint32(len(payload)))
	b.data = append(b.data, fields[:]...)
	b.data = append(b.data, payload...)
	return b
}

// buildIndependentRoots assembles a database with n independent
// graphics_pipeline roots, each with its own pipeline_layout and
// render_pass, so they share no dependency and can be chunked
// arbitrarily across workers.
func buildIndependentRoots(n int) []byte {
	b := newDBBuilder()
	for i := 0; i < n; i++ {
		rootHash := uint64(i)
		layoutHash := uint64(1000 + i)
		renderPassHash := uint64(2000 + i)
		b.add(uint32(vk.TagGraphicsPipeline), rootHash, []byte(fmt.Sprintf(
			`{"version":6,"hash":"%016x","stages":[],"layout":"%016x","render_pass":"%016x","subpass":0,"topology":0}`,
			rootHash, layoutHash, renderPassHash)))
		b.add(uint32(vk.TagPipelineLayout), layoutHash, []byte(fmt.Sprintf(
			`{"version":6,"hash":"%016x","set_layouts":[],"push_constant_ranges":[]}`, layoutHash)))
		b.add(uint32(vk.TagRenderPass), renderPassHash, []byte(fmt.Sprintf(
			`{"version":6,"hash":"%016x","attachments":[],"subpasses":[]}`, renderPassHash)))
	}
	return b.data
}

func Test_Dispatcher_Run_ResolvesEveryRootAcrossManyWorkers(t *testing.T) {
	t.Parallel()

	data := buildIndependentRoots(20)
	result, err := dbfile.Load(data)
	require.NoError(t, err)

	store := entrystore.New(result.Records)
	d := driver.NewStubDriver()
	w := walker.New(store, parser.DefaultRegistry(), d)
	dsp := dispatch.New(w, 4)

	err = dsp.Run(context.Background(), store.Roots())
	require.NoError(t, err)

	for _, e := range store.All() {
		require.True(t, e.Status.Created(), "entry %v never reached created", e.Key)
		require.True(t, e.Destroyed(), "entry %v never destroyed", e.Key)
	}
}

func Test_Dispatcher_Run_NoRoots_IsANoOp(t *testing.T) {
	t.Parallel()

	d := driver.NewStubDriver()
	w := walker.New(entrystore.New(nil), parser.DefaultRegistry(), d)
	dsp := dispatch.New(w, 4)

	require.NoError(t, dsp.Run(context.Background(), nil))
}

func Test_Dispatcher_Run_CanceledContext_StopsEarly(t *testing.T) {
	t.Parallel()

	data := buildIndependentRoots(50)
	result, err := dbfile.Load(data)
	require.NoError(t, err)

	store := entrystore.New(result.Records)
	d := driver.NewStubDriver()
	w := walker.New(store, parser.DefaultRegistry(), d)
	dsp := dispatch.New(w, 4)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = dsp.Run(ctx, store.Roots())
	require.Error(t, err)
}
