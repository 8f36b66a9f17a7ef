package engine_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Easimer/boringrep/internal/engine"
	"github.com/Easimer/boringrep/internal/mapio"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
		goleak.IgnoreTopFunction("sync.runtime_Semacquire"),
	)
}

func awaitTerminal(t *testing.T, state *engine.RequestState) engine.Status {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if s := state.Status(); s != engine.Pending {
			return s
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("request never reached a terminal status")
	return engine.Pending
}

func Test_SimpleMatch_ReportsLineAndColumn(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "f.txt"), []byte("foo\nbar\nfoo\n"), 0o644))

	ctl := engine.New(2)
	ctl.PutRequest(engine.GrepRequest{PathRoot: root, PatternFilename: `.*`, PatternContent: `foo`})

	state := ctl.GetCurrentState()
	require.NotNil(t, state)
	require.Equal(t, engine.Finished, awaitTerminal(t, state))

	files := state.Files()
	require.Len(t, files, 1)
	require.Equal(t, 2, len(files[0].Matches))
	require.Equal(t, 0, files[0].Matches[0].IdxLine)
	require.Equal(t, 0, files[0].Matches[0].IdxColumn)
	require.Equal(t, 2, files[0].Matches[1].IdxLine)
	require.Equal(t, 0, files[0].Matches[1].IdxColumn)

	ctl.DiscardOldestState()
	ctl.Exit()
}

func Test_EmptyFile_YieldsNoMatchesAndNoLeakedMapping(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "empty.txt"), nil, 0o644))

	before := mapio.LiveMappings()

	ctl := engine.New(2)
	ctl.PutRequest(engine.GrepRequest{PathRoot: root, PatternFilename: `.*`, PatternContent: `x`})

	state := ctl.GetCurrentState()
	require.Equal(t, engine.Finished, awaitTerminal(t, state))
	require.Empty(t, state.Files())
	require.Equal(t, before, mapio.LiveMappings())

	ctl.DiscardOldestState()
	ctl.Exit()
}

func Test_LargeSingleLineFile_MatchesNearEOF(t *testing.T) {
	root := t.TempDir()
	content := strings.Repeat("a", 1<<20-6) + "needle"
	require.NoError(t, os.WriteFile(filepath.Join(root, "big.txt"), []byte(content), 0o644))

	ctl := engine.New(2)
	ctl.PutRequest(engine.GrepRequest{PathRoot: root, PatternFilename: `.*`, PatternContent: `needle`})

	state := ctl.GetCurrentState()
	require.Equal(t, engine.Finished, awaitTerminal(t, state))

	files := state.Files()
	require.Len(t, files, 1)
	require.Len(t, files[0].Matches, 1)
	require.Equal(t, 0, files[0].Matches[0].IdxLine)
	require.Equal(t, 1<<20-6, files[0].Matches[0].IdxColumn)

	ctl.DiscardOldestState()
	ctl.Exit()
}

func Test_CaseSensitiveFilenamePattern_EnumerateOnly(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "readme.md"), []byte("x"), 0o644))

	ctl := engine.New(2)
	ctl.PutRequest(engine.GrepRequest{PathRoot: root, PatternFilename: `^README\.md$`})

	state := ctl.GetCurrentState()
	require.Equal(t, engine.Finished, awaitTerminal(t, state))

	files := state.Files()
	require.Len(t, files, 1)
	require.Equal(t, "README.md", filepath.Base(files[0].Path))
	require.Empty(t, files[0].Matches)

	ctl.DiscardOldestState()
	ctl.Exit()
}

func Test_BadContentPattern_FailsWithoutLeakingWorkers(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "f.txt"), []byte("x"), 0o644))

	ctl := engine.New(4)
	ctl.PutRequest(engine.GrepRequest{PathRoot: root, PatternFilename: `.*`, PatternContent: `(unterminated`})

	state := ctl.GetCurrentState()
	require.Equal(t, engine.BadPattern, awaitTerminal(t, state))

	ctl.DiscardOldestState()
	ctl.Exit()
}

func Test_BadFilenamePattern_Fails(t *testing.T) {
	root := t.TempDir()

	ctl := engine.New(2)
	ctl.PutRequest(engine.GrepRequest{PathRoot: root, PatternFilename: `[`, PatternContent: `x`})

	state := ctl.GetCurrentState()
	require.Equal(t, engine.BadFilenamePattern, awaitTerminal(t, state))

	ctl.DiscardOldestState()
	ctl.Exit()
}

func Test_SupersedingRequest_LeavesBothRequestsInATerminalState(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 50; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(root, strings.Repeat("f", i+1)+".txt"), []byte("needle\n"), 0o644))
	}

	ctl := engine.New(2)
	ctl.PutRequest(engine.GrepRequest{PathRoot: root, PatternFilename: `.*`, PatternContent: `needle`})
	first := ctl.GetCurrentState()

	// Issued immediately after the first, with no synchronization point in
	// between: whether the first run has made any progress yet is a race,
	// but PutRequest must never leave it stuck in Pending.
	ctl.PutRequest(engine.GrepRequest{PathRoot: root, PatternFilename: `.*`, PatternContent: `needle`})

	firstStatus := awaitTerminal(t, first)
	require.Contains(t, []engine.Status{engine.Aborted, engine.Finished}, firstStatus)

	ctl.DiscardOldestState()
	second := ctl.GetCurrentState()
	require.NotNil(t, second)
	require.Equal(t, engine.Finished, awaitTerminal(t, second))

	ctl.DiscardOldestState()
	ctl.Exit()
}

func Test_DiscardOldestState_ReleasesAllMappings(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "f1.txt"), []byte("needle\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "f2.txt"), []byte("needle\n"), 0o644))

	before := mapio.LiveMappings()

	ctl := engine.New(2)
	ctl.PutRequest(engine.GrepRequest{PathRoot: root, PatternFilename: `.*`, PatternContent: `needle`})

	state := ctl.GetCurrentState()
	require.Equal(t, engine.Finished, awaitTerminal(t, state))
	require.Greater(t, mapio.LiveMappings(), before)

	ctl.DiscardOldestState()
	require.Equal(t, before, mapio.LiveMappings())

	ctl.Exit()
}

func Test_NewWithOptions_BoundedPipesStillFinish(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 20; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(root, strings.Repeat("f", i+1)+".txt"), []byte("needle\n"), 0o644))
	}

	ctl := engine.NewWithOptions(engine.Options{
		Workers:         2,
		InputsCapacity:  1,
		ResultsCapacity: 1,
		ChunkSize:       1,
	})
	ctl.PutRequest(engine.GrepRequest{PathRoot: root, PatternFilename: `.*`, PatternContent: `needle`})

	state := ctl.GetCurrentState()
	require.Equal(t, engine.Finished, awaitTerminal(t, state))
	require.Len(t, state.Files(), 20)

	ctl.DiscardOldestState()
	ctl.Exit()
}

func Test_Duration_IsPositiveOnceTerminal(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "f.txt"), []byte("x"), 0o644))

	ctl := engine.New(2)
	ctl.PutRequest(engine.GrepRequest{PathRoot: root, PatternFilename: `.*`, PatternContent: `x`})

	state := ctl.GetCurrentState()
	require.Equal(t, engine.Finished, awaitTerminal(t, state))
	require.Greater(t, state.Duration(), time.Duration(0))

	ctl.DiscardOldestState()
	ctl.Exit()
}
