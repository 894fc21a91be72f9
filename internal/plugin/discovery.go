package plugin

import (
	"regexp"
	"sort"

	"github.com/tetratelabs/wazero"
)

// candidateEntrypoints names the three exports a single transformer
// candidate must provide, sharing a common id prefix.
type candidateEntrypoints struct {
	id             string
	declaredSchema string
	parameterShape string
	transform      string
}

// entrypointPattern matches one export of a transformer candidate's
// three-function set: "<id>__declared_schema", "<id>__parameter_shape", or
// "<id>__transform". This is the systems-language analogue of scanning a
// loaded JAR for concrete subclasses of a transformer base class: instead
// of a type hierarchy, a transformer artifact declares itself by exporting
// a complete, consistently-prefixed symbol triple.
var entrypointPattern = regexp.MustCompile(`^(.+)__(declared_schema|parameter_shape|transform)$`)

const (
	suffixDeclaredSchema = "declared_schema"
	suffixParameterShape = "parameter_shape"
	suffixTransform      = "transform"
)

// discoverCandidates scans compiled's exported function names for complete
// transformer entrypoint triples and returns one candidateEntrypoints per
// distinct id prefix that exports all three required suffixes. An id
// prefix exporting only one or two of the three suffixes is not a
// candidate — it is treated as an incomplete/unrelated export and ignored,
// matching the source behavior of only matching fully-formed subclasses.
func discoverCandidates(compiled wazero.CompiledModule) []candidateEntrypoints {
	bySuffix := map[string]map[string]bool{}
	for name := range compiled.ExportedFunctions() {
		m := entrypointPattern.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		id, suffix := m[1], m[2]
		if bySuffix[id] == nil {
			bySuffix[id] = map[string]bool{}
		}
		bySuffix[id][suffix] = true
	}

	ids := make([]string, 0, len(bySuffix))
	for id := range bySuffix {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var candidates []candidateEntrypoints
	for _, id := range ids {
		suffixes := bySuffix[id]
		if suffixes[suffixDeclaredSchema] && suffixes[suffixParameterShape] && suffixes[suffixTransform] {
			candidates = append(candidates, candidateEntrypoints{
				id:             id,
				declaredSchema: id + "__" + suffixDeclaredSchema,
				parameterShape: id + "__" + suffixParameterShape,
				transform:      id + "__" + suffixTransform,
			})
		}
	}
	return candidates
}
