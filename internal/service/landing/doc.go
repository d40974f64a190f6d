// Package landing implements the landing page lifecycle: drafting, validation,
// saving, publishing at a slug, AI content regeneration and deletion.
//
// Validate is a pure function and may be called at any time; Service gates
// only Save and Publish on a valid configuration, so drafts may stay invalid
// while they are being edited. The service depends on the Repository and
// ContentGenerator interfaces defined here and never imports handler code.
//
// Repository implementations live in repository/postgres/ and repository/memory/.
package landing
