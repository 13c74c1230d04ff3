// Package catalog holds the candidate files a backfill run edits and the
// commit message corpus it draws from.
//
// Every file is classified exactly once, when the catalog is built, into a
// closed set of kinds (code, style, structured, narrative, other) together
// with the comment syntax its edits use. The mutate package switches on the
// kind; it never inspects extensions itself.
//
// Catalogs come from a built-in preset or from a YAML file:
//
//	preset: weekly          # optional base for missing keys
//	files:
//	  - src/App.tsx
//	  - package.json
//	messages:
//	  - "feat: enhanced customization features"
package catalog
