// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package trace

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/gviegas/rhigraph/barrier"
	"github.com/gviegas/rhigraph/compiler"
	"github.com/gviegas/rhigraph/driver"
	"github.com/gviegas/rhigraph/registry"
	"github.com/gviegas/rhigraph/rgraph"

	_ "github.com/gviegas/rhigraph/driver/mock"
)

func testGPU(t *testing.T) driver.GPU {
	t.Helper()
	drvs := driver.Drivers()
	require.NotEmpty(t, drvs)
	gpu, err := drvs[0].Open()
	require.NoError(t, err)
	return gpu
}

func testFrame(t *testing.T) (*compiler.CompiledFrame, *barrier.Plan) {
	t.Helper()
	gpu := testGPU(t)
	reg := registry.New()
	h, err := reg.RegisterImage(registry.ImageDesc{
		Size: driver.Dim3D{Width: 16, Height: 16, Depth: 1}, Format: driver.RGBA8Unorm,
		Samples: 1, MipLevels: 1, ArrayLayers: 1,
		Usage: driver.URenderTarget, Transient: true,
	})
	require.NoError(t, err)
	img, err := gpu.NewImage(driver.RGBA8Unorm, driver.Dim3D{Width: 16, Height: 16, Depth: 1}, 1, 1, 1, driver.UGeneric)
	require.NoError(t, err)
	v, err := img.NewView(driver.IView2D, 0, 1, 0, 1)
	require.NoError(t, err)
	require.NoError(t, reg.BindView(h, v))

	b := rgraph.New(reg)
	b.BeginFrame(nil)
	p := b.AddPass("clear", driver.Graphics)
	require.NoError(t, b.SetColorTargets(p, []rgraph.ColorTargetDesc{{View: v, Load: driver.LClear, Store: driver.SStore}}, []registry.Handle{h}))
	frame, err := b.EndFrame()
	require.NoError(t, err)

	cf, err := compiler.Compile(gpu, reg, frame)
	require.NoError(t, err)
	plan, err := barrier.Solve(gpu, reg, cf)
	require.NoError(t, err)
	return cf, plan
}

func TestSummarizeListsRecordedPass(t *testing.T) {
	cf, plan := testFrame(t)
	summary := Summarize(cf, plan)
	passes, ok := summary["passes"].([]any)
	require.True(t, ok)
	require.Len(t, passes, 1)
	p := passes[0].(map[string]any)
	assert.Equal(t, "clear", p["name"])
	assert.Equal(t, "graphics", p["queue"])

	st, err := ToStruct(summary)
	require.NoError(t, err)
	assert.NotNil(t, st.Fields["passes"])
}

func TestExporterSendsOverGRPC(t *testing.T) {
	cf, plan := testFrame(t)

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	sink := NewSink()
	RegisterGraphTraceServer(srv, sink)
	go srv.Serve(lis)
	defer srv.Stop()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	defer conn.Close()

	exp := NewExporter(NewGraphTraceClient(conn))
	require.NoError(t, exp.Send(context.Background(), cf, plan))

	require.Len(t, sink.Frames(), 1)
}
