// Package harness runs migration scenarios against the shipped step table.
//
// A scenario describes the document an older release left behind, runs the
// bootstrap lifecycle over it and checks the result. Each scenario gets its
// own in-memory SQLite store, a deterministic clock and sequential run ids,
// so runs are reproducible and can be compared against golden snapshots.
//
// # Scenario Format
//
//	name: legacy-v1-through-3
//	description: "Seeds yi and zhipu after an openai-only install"
//	locale: en-US        # optional, defaults to en-US
//	through: 3           # optional, stop the step table at this version
//	checkpoint: true     # optional, persist after every step
//	document: |          # optional, omitted means a fresh install
//	  {"schemaVersion": 1, "providers": []}
//	expect:
//	  status: completed  # seeded, current, completed or failed
//	  error: ""          # error kind, see ErrorKinds
//	assertions:
//	  - type: version
//	    value: 3
//	  - type: providers
//	    ids: [yi, zhipu]
//	  - type: path_equals
//	    path: providers.#(id=="yi").apiKey
//	    value: ""
//
// # Assertion Types
//
//   - version: the stored document is stamped with value
//   - providers: the provider ids, in order, equal ids
//   - path_equals: the value at a gjson path equals value
//   - path_absent: nothing exists at a gjson path
//   - steps_applied: the recorded step versions equal steps
//   - idempotent: applying every step again changes nothing
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/zhipu-fix.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
