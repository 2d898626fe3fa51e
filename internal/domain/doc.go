// Package domain models the community flood-reporting data and the local
// validation pipeline that guards every mutating flow.
//
// # Data Model
//
// All records are owned and persisted by the hosted backend (auth provider +
// relational store with row-level policies); this service holds transient
// copies only. Four collections are consumed:
//
//	profiles     one per identity: username and the CO2 accumulator
//	road_reports immutable user-submitted road condition reports
//	eco_stats    append-only ledger of CO2 credits, one row per action
//	eco_tips     read-only reference content
//
// Profile.TotalCO2Saved is intended to equal the sum of the owner's eco-stat
// credits. Both writes are issued per qualifying action by the submission
// saga in internal/pipeline; the pairing is not atomic at the store boundary.
//
// # Rain Levels
//
// Reports carry a three-valued rain/flood level:
//
//	low       minor puddles
//	moderate  ankle deep water
//	high      severe flooding
//
// The level keys the map marker color and the report badge styling.
//
// # Eco Credits
//
// Each submitted report credits a fixed 1.5 kg CO2 saving (action type
// "road_report"). Dashboard derivations: progress toward a 50 kg goal and an
// impact level stepping Helper -> Champion -> Hero at 5 and 10 reports.
package domain
