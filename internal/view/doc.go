// Package view renders the site's single page.
//
// A page is built from three fragments, header, body and footer, collected in
// a per-request Fragments store. Pipeline runs the stages in a fixed order:
//
//	header hook -> page handler -> footer hook -> assembler
//
// Each stage writes at most one slot. The assembler refuses to produce a
// document unless every slot is filled, so a misconfigured pipeline fails
// the request with a 500 instead of rendering blank sections.
package view
