package observability

import (
	"testing"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInitCLILogger(t *testing.T) {
	t.Cleanup(func() { CLILogger = nil })

	InitCLILogger("replykit-test", false)
	require.NotNil(t, CLILogger)
	CLILogger.Info("cli logger ready", zap.String("test", "value"))

	InitCLILogger("replykit-test", false, "debug")
	require.NotNil(t, CLILogger)
	CLILogger.Debug("debug enabled from config level")
}

func TestInitServerLogger(t *testing.T) {
	t.Cleanup(func() { ServerLogger = nil })

	InitServerLogger("replykit-test", "warn", "replykit")
	require.NotNil(t, ServerLogger)
	ServerLogger.Warn("structured logger ready", zap.String("component", "test"))
}

func TestLoggerPrefersServerLogger(t *testing.T) {
	t.Cleanup(func() {
		CLILogger = nil
		ServerLogger = nil
	})

	CLILogger = nil
	ServerLogger = nil
	require.Nil(t, Logger())

	InitCLILogger("replykit-test", false)
	require.Same(t, CLILogger, Logger())

	InitServerLogger("replykit-test", "info")
	require.Same(t, ServerLogger, Logger())
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]string{
		"trace":   "TRACE",
		"DEBUG":   "DEBUG",
		" warn ":  "WARN",
		"warning": "WARN",
		"error":   "ERROR",
		"":        "INFO",
		"bogus":   "INFO",
	}
	for in, want := range cases {
		require.Equal(t, want, parseLogLevel(in), "input %q", in)
	}
}

func TestEmbeddedCrucibleVersion(t *testing.T) {
	version := crucible.GetVersion()
	require.NotEmpty(t, version.Gofulmen)
	require.NotEmpty(t, version.Crucible)
}

func TestResolvePort(t *testing.T) {
	port, err := resolvePort("127.0.0.1:9464")
	require.NoError(t, err)
	require.Equal(t, 9464, port)

	_, err = resolvePort("no-port")
	require.Error(t, err)
}
