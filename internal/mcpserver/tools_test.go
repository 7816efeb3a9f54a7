package mcpserver_test

import (
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"

	"github.com/replyhive/replyhive-go/internal/admission"
	"github.com/replyhive/replyhive-go/internal/dispatch"
	"github.com/replyhive/replyhive-go/internal/ledger"
	"github.com/replyhive/replyhive-go/internal/mcpserver"
	"github.com/replyhive/replyhive-go/internal/queue"
	"github.com/replyhive/replyhive-go/internal/rollover"
	"github.com/replyhive/replyhive-go/internal/subscription"
	"github.com/replyhive/replyhive-go/internal/testutil"
)

func TestRegisterTools(t *testing.T) {
	ledgerStore := ledger.NewMemoryStore(5000)
	queueStore := queue.NewMemoryStore()
	subs := subscription.NewStaticSource()
	ctrl := admission.New(ledgerStore, queueStore, subs, admission.DefaultConfig())
	disp := dispatch.New(testutil.NewStubVendor(), dispatch.NewEndpointLimiter(dispatch.DefaultEndpointRates()))
	proc := rollover.New(ctrl, queueStore, disp)

	server := mcp.NewServer(&mcp.Implementation{Name: "test", Version: "v1"}, nil)
	mcpserver.RegisterTools(server, mcpserver.Deps{
		Ctrl:   ctrl,
		Ledger: ledgerStore,
		Queue:  queueStore,
		Proc:   proc,
	})

	// Verify it compiles and registers without panic.
	assert.NotNil(t, server)
}
