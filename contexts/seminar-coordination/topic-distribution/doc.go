// Package topicdistribution implements the Topic Distribution Engine inside
// the seminar-coordination context.
//
// The module owns subjects, their numbered topic sets, first-come-first-served
// registrations, and start-time gating. It arbitrates concurrent claim
// attempts so each topic is given to exactly one user, and drives one-shot
// timers for the distribution-start broadcast and the pre-start reminder.
// Business rules live in the application/domain layers; infrastructure sits
// behind ports and adapters.
package topicdistribution
