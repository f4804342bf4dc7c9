// Package harness provides conformance testing for the dialing core.
//
// A scenario wires the real engine, chevron board, dialing computer and
// journal over one channel bundle, dials once, optionally interrupts, and
// checks what came out of the channels.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	anchors: on_activation          # or measured (default)
//	settle: 10ms
//	tokens: [dial-1, dial-2]
//	dial:
//	  text: "GDCAFE"                # through the dialing computer
//	  # address: GDCAFEA            # or straight to the engine
//	interrupt:
//	  action: redial                # or reset
//	  after: 3
//	  redial: { text: "BRT5QX" }
//	expect:
//	  chevrons: [1, 2, 3, 1, 2, 3, 4, 5, 6, 7]
//	  status: active
//	  statuses: [idle, dialing, engaged, idle, dialing, engaged, active]
//	  results: 1
//	  reached: true
//	  destination: chulak
//	  alerts: 0
//	  outcomes: { dial-1: aborted, dial-2: reached }
//
// # Anchors
//
// With measured anchors every chevron position is known before dialing, so
// each chevron answers its activation synchronously. With on_activation a
// driver goroutine measures a chevron only once its activation arrives,
// which holds the engine at every step and makes interrupts land at an
// exact point. Interrupts require on_activation.
//
// # Deterministic Testing
//
// All scenarios execute with fixed attempt tokens, the recorder's logical
// sequence and an in-memory SQLite journal (isolated per run), so traces are
// identical across runs and compare byte for byte against golden files.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/a_full_dial.yaml")
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
