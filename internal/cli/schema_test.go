package cli

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSchema(t *testing.T) {
	root := &cobra.Command{
		Use:   "mentanovad",
		Short: "Mentanova retrieval daemon",
	}
	AddHelpJSONFlag(root)

	serve := ServeCmd()
	root.AddCommand(serve)

	hidden := &cobra.Command{Use: "debug-dump", Hidden: true}
	root.AddCommand(hidden)

	schema := GenerateSchema(root)

	assert.Equal(t, "mentanovad", schema.Name)
	assert.Equal(t, "Mentanova retrieval daemon", schema.Description)

	require.Len(t, schema.Subcommands, 1)
	assert.Equal(t, "serve", schema.Subcommands[0].Name)

	var flagNames []string
	for _, f := range schema.Subcommands[0].Flags {
		flagNames = append(flagNames, f.Name)
	}
	assert.Contains(t, flagNames, "port")
	assert.Contains(t, flagNames, "no-migrate")
	assert.NotContains(t, flagNames, "help")
	assert.NotContains(t, flagNames, "help-json")
}

func TestGenerateSchema_RequiredFlag(t *testing.T) {
	cmd := &cobra.Command{Use: "ingest"}
	cmd.Flags().String("bucket", "", "Source bucket")
	cmd.Flags().String("prefix", "", "Key prefix")
	require.NoError(t, cmd.MarkFlagRequired("bucket"))

	schema := GenerateSchema(cmd)

	byName := make(map[string]FlagSchema)
	for _, f := range schema.Flags {
		byName[f.Name] = f
	}
	assert.True(t, byName["bucket"].Required)
	assert.False(t, byName["prefix"].Required)
}

func TestResolveCommand(t *testing.T) {
	root := &cobra.Command{Use: "mentanovad"}
	serve := ServeCmd()
	root.AddCommand(serve)

	assert.Equal(t, root, resolveCommand(root, nil))
	assert.Equal(t, serve, resolveCommand(root, []string{"serve"}))
	assert.Equal(t, root, resolveCommand(root, []string{"unknown"}))
}
