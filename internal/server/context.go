package server

import (
	"github.com/skillbench/skillbench/internal/kserve"
	"github.com/skillbench/skillbench/internal/provider"
	"github.com/skillbench/skillbench/internal/report"
)

// ServerContext holds shared dependencies for MCP tool handlers.
type ServerContext struct {
	KServeManager *kserve.Manager
	Invoker       provider.Invoker // default invoker for benchmark and judge calls
	Namespace     string
	SkillsDir     string
	Store         *report.Store
}
