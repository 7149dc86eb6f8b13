// Package shape provides the text-shaping collaborators consumed by the
// termatlas engine: font sources and faces with stable identities, the
// font-fallback mapper, the text complexity classifier, and the shaping
// engine contract with its production implementation on go-text/typesetting.
package shape
