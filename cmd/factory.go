package cmd

import (
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/capsim/capsim/internal/audit"
	"github.com/capsim/capsim/internal/config"
	"github.com/capsim/capsim/internal/core"
	"github.com/capsim/capsim/internal/service"
	"github.com/capsim/capsim/pkg/client"
)

type Factory struct {
	// RemoteAddr is the address of the capsim server to connect to.
	RemoteAddr string

	// AppConfigPath points at the optional capsim application config
	// (schema extensions, audit, runner defaults).
	AppConfigPath string

	// Command-specific input documents
	PoliciesPath  string // baseline policy set
	CandidatePath string // candidate policy set
	UsersPath     string
	ContextsPath  string
}

func NewFactory() *Factory {
	return &Factory{}
}

// GetClient returns an HTTP client for remote operations.
func (f *Factory) GetClient() (*client.Client, error) {
	server := f.RemoteAddr // prio 1: command-line flag
	if server == "" {
		server = viper.GetString(ServerAddrKey) // prio 2: config/env
	}
	if server == "" {
		return nil, fmt.Errorf("server address not configured (use --server or set CAPSIM_ADDR)")
	}
	return client.New(server), nil
}

// LoadAppConfig loads the application config, falling back to defaults when
// no path is given.
func (f *Factory) LoadAppConfig() (*config.Config, error) {
	if f.AppConfigPath == "" {
		return config.Default(), nil
	}
	return config.Load(f.AppConfigPath)
}

// GetLocalService builds a simulation service for local (offline) runs.
func (f *Factory) GetLocalService() (*service.SimulationService, *config.Config, error) {
	cfg, err := f.LoadAppConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("loading app config: %w", err)
	}

	auditor, err := audit.Build(cfg.Audit)
	if err != nil {
		return nil, nil, fmt.Errorf("building auditor: %w", err)
	}

	svc := service.NewSimulationService(cfg.BuildSchema(), cfg.Simulation.Workers, auditor)
	return svc, cfg, nil
}

// LoadInputs reads the user and context documents.
func (f *Factory) LoadInputs() ([]config.User, []config.Context, error) {
	if f.UsersPath == "" {
		return nil, nil, fmt.Errorf("users file not specified (use --users)")
	}
	if f.ContextsPath == "" {
		return nil, nil, fmt.Errorf("contexts file not specified (use --contexts)")
	}

	users, err := config.LoadUsers(f.UsersPath)
	if err != nil {
		return nil, nil, err
	}
	contexts, err := config.LoadContexts(f.ContextsPath)
	if err != nil {
		return nil, nil, err
	}
	return users, contexts, nil
}

// LoadPolicyDocuments reads the baseline and candidate policy files.
func (f *Factory) LoadPolicyDocuments() (*config.PolicyDocument, *config.PolicyDocument, error) {
	if f.PoliciesPath == "" {
		return nil, nil, fmt.Errorf("baseline policy file not specified (use --policies)")
	}
	if f.CandidatePath == "" {
		return nil, nil, fmt.Errorf("candidate policy file not specified (use --candidate)")
	}

	baseline, err := config.LoadPolicyDocument(f.PoliciesPath)
	if err != nil {
		return nil, nil, err
	}
	candidate, err := config.LoadPolicyDocument(f.CandidatePath)
	if err != nil {
		return nil, nil, err
	}
	return baseline, candidate, nil
}

func (f *Factory) bindPolicyFlags(flags *pflag.FlagSet) {
	flags.StringVarP(&f.PoliciesPath, "policies", "p", "", "Baseline policy set file")
	flags.StringVar(&f.CandidatePath, "candidate", "", "Candidate policy set file")
}

func (f *Factory) bindInputFlags(flags *pflag.FlagSet) {
	flags.StringVarP(&f.UsersPath, "users", "u", "", "User document file")
	flags.StringVarP(&f.ContextsPath, "contexts", "c", "", "Context document file")
	flags.StringVar(&f.AppConfigPath, "config", "", "Application config file (schema, audit, defaults)")
}

func summarizeSet(doc *config.PolicyDocument) string {
	enabled := 0
	for _, p := range doc.Policies {
		if p.Enabled {
			enabled++
		}
	}
	return fmt.Sprintf("%s (%d policies, %d enabled)", doc.Name, len(doc.Policies), enabled)
}

// effectLabel renders a policy effect for tables and traces.
func effectLabel(e core.Effect) string {
	if e.Access == core.AccessRequire {
		return fmt.Sprintf("%s %v", e.Access, e.Controls)
	}
	return string(e.Access)
}
