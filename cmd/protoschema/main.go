package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/invopop/jsonschema"
	"github.com/rotisserie/eris"

	"arena/server/internal/net/proto"
	"arena/server/internal/replication"
)

// messageCatalog lists every frame exchanged over the websocket.
type messageCatalog struct {
	Welcome                       replication.Welcome                       `json:"welcome"`
	PlayerSpawnDelayed            replication.PlayerSpawnDelayed            `json:"playerSpawnDelayed"`
	PlayerSpawnUndelayed          replication.PlayerSpawnUndelayed          `json:"playerSpawnUndelayed"`
	PlayerSpawnDelayStatusChanged replication.PlayerSpawnDelayStatusChanged `json:"playerSpawnDelayStatusChanged"`
	PlayerBusyStatusChanged       replication.PlayerBusyStatusChanged       `json:"playerBusyStatusChanged"`
	PlayerReturnPenaltyStarted    replication.PlayerReturnPenaltyStarted    `json:"playerReturnPenaltyStarted"`
	GameSuspending                replication.GameSuspending                `json:"gameSuspending"`
	GameSuspended                 replication.GameSuspended                 `json:"gameSuspended"`
	GameResumed                   replication.GameResumed                   `json:"gameResumed"`
	MatchEnded                    replication.MatchEnded                    `json:"matchEnded"`
	Client                        proto.ClientMessage                       `json:"client"`
}

func main() {
	var outPath string
	flag.StringVar(&outPath, "out", "", "path to write the JSON schema")
	flag.Parse()

	if outPath == "" {
		fmt.Fprintln(os.Stderr, "--out is required")
		os.Exit(1)
	}

	if err := writeSchema(outPath, buildSchema()); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write schema: %v\n", err)
		os.Exit(1)
	}
}

func buildSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
	}
	schema := reflector.Reflect(new(messageCatalog))
	schema.Title = "Arena Activity Protocol"
	schema.Description = fmt.Sprintf("Websocket frames for protocol version %d", proto.Version)
	return schema
}

func writeSchema(outPath string, schema *jsonschema.Schema) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return eris.Wrap(err, "marshal schema")
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return eris.Wrap(err, "create schema directory")
	}

	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, append(data, '\n'), 0o644); err != nil {
		return eris.Wrap(err, "write temp schema")
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		return eris.Wrap(err, "replace schema")
	}
	return nil
}
