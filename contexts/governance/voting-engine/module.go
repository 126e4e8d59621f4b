package votingengine

import (
	"log/slog"

	"sealedgov/contexts/governance/voting-engine/adapters/execution"
	httpadapter "sealedgov/contexts/governance/voting-engine/adapters/http"
	"sealedgov/contexts/governance/voting-engine/adapters/memory"
	"sealedgov/contexts/governance/voting-engine/adapters/signature"
	"sealedgov/contexts/governance/voting-engine/application/commands"
	"sealedgov/contexts/governance/voting-engine/application/queries"
	"sealedgov/contexts/governance/voting-engine/domain/commitment"
	"sealedgov/contexts/governance/voting-engine/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Store   *memory.Store
}

type Dependencies struct {
	Repo     ports.Repository
	Heights  ports.HeightSource
	Clock    ports.Clock
	IDGen    ports.IDGenerator
	Hasher   commitment.Hasher
	Verifier ports.SignatureVerifier
	Hook     ports.ExecutionHook

	Administrators            []string
	GlobalReputationThreshold uint64
	StrictOptions             bool
	ResultCacheSize           uint32
	Logger                    *slog.Logger
}

func NewModule(deps Dependencies) Module {
	hasher := deps.Hasher
	if hasher == nil {
		hasher = commitment.Blake256{}
	}
	verifier := deps.Verifier
	if verifier == nil {
		verifier = signature.AcceptAll{}
	}
	hook := deps.Hook
	if hook == nil {
		hook = execution.LogHook{Logger: deps.Logger}
	}

	return Module{
		Handler: httpadapter.Handler{
			Sessions: commands.SessionUseCase{
				Repo:                      deps.Repo,
				Heights:                   deps.Heights,
				IDGen:                     deps.IDGen,
				Clock:                     deps.Clock,
				Administrators:            deps.Administrators,
				GlobalReputationThreshold: deps.GlobalReputationThreshold,
				Logger:                    deps.Logger,
			},
			Ballots: commands.BallotUseCase{
				Repo:          deps.Repo,
				Heights:       deps.Heights,
				Hasher:        hasher,
				Verifier:      verifier,
				Hook:          hook,
				StrictOptions: deps.StrictOptions,
				IDGen:         deps.IDGen,
				Clock:         deps.Clock,
				Logger:        deps.Logger,
			},
			Delegations: commands.DelegationUseCase{
				Repo:    deps.Repo,
				Heights: deps.Heights,
				IDGen:   deps.IDGen,
				Clock:   deps.Clock,
				Logger:  deps.Logger,
			},
			Ledger: commands.LedgerUseCase{
				Repo:           deps.Repo,
				Heights:        deps.Heights,
				IDGen:          deps.IDGen,
				Clock:          deps.Clock,
				Administrators: deps.Administrators,
				Logger:         deps.Logger,
			},
			Queries: queries.QueryUseCase{
				Repo:    deps.Repo,
				Heights: deps.Heights,
				Results: queries.NewResultCache(deps.ResultCacheSize),
			},
			Logger: deps.Logger,
		},
	}
}

// NewInMemoryModule wires every port to one memory.Store. The store doubles
// as the height source, so callers drive phases with Store.SetHeight.
func NewInMemoryModule(administrators []string, logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Repo:            store,
		Heights:         store,
		Clock:           store,
		IDGen:           store,
		Administrators:  administrators,
		ResultCacheSize: 256,
		Logger:          logger,
	})
	module.Store = store
	return module
}
