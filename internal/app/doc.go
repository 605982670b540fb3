// Package app composes the progression services into a running application.
// It is a wiring layer, not a business logic layer: rules live in the
// services packages, persistence behind the storage interfaces.
//
//	internal/app/
//	├── application.go      # Application struct, wiring, and lifecycle
//	├── domain/             # Pure domain types
//	│   ├── user/           # User progression record
//	│   ├── activity/       # Tasks and focus sessions
//	│   └── progression/    # XP ledger entries, levels, streaks
//	├── storage/            # Store interfaces and implementations
//	│   ├── interfaces.go   # UserStore, LedgerStore, ActivityStore
//	│   ├── memory/         # In-memory implementation for tests and dev
//	│   └── postgres/       # PostgreSQL implementation for production
//	├── services/           # Business logic
//	│   ├── award/          # XP awarding, idempotency, progress reads
//	│   ├── activities/     # Task and session ownership, award triggers
//	│   ├── stats/          # Rollups and streaks
//	│   └── users/          # User creation and lookup
//	├── httpapi/            # REST handlers, auth, audit trail
//	├── system/             # Background service lifecycle
//	└── metrics/            # Prometheus registry and HTTP instrumentation
//
// The dependency direction is strictly downward: httpapi depends on the
// services, the services depend on domain types and storage interfaces, and
// the storage implementations depend on nothing above them.
package app
