// Package wasmfixture hand-assembles minimal WASM modules implementing the
// plugin host's calling convention (malloc/free plus a declared_schema/
// parameter_shape/transform export triple per candidate id), so internal/
// plugin and internal/expand can exercise a real transformer artifact in
// tests without a toolchain able to compile one. Every exported entrypoint
// ignores its input and returns a fixed, data-section-backed JSON payload;
// the point of these fixtures is to exercise the host's discovery, calling
// convention, and isolation behavior, not to model arbitrary transformer
// logic.
package wasmfixture

const (
	valI32 = 0x7F
	valI64 = 0x7E

	opLocalGet  = 0x20
	opLocalSet  = 0x21
	opGlobalGet = 0x23
	opGlobalSet = 0x24
	opI32Const  = 0x41
	opI64Const  = 0x42
	opI32Add    = 0x6A
	opEnd       = 0x0B

	exportKindFunc = 0x00
	exportKindMem  = 0x02
)

// bumpGlobalStart is where the module's trivial bump allocator starts
// handing out memory, comfortably past every data segment any fixture built
// here will need.
const bumpGlobalStart = 8192

// Build assembles a module exporting exactly one complete candidate:
// "<id>__declared_schema", "<id>__parameter_shape", and "<id>__transform",
// each returning the corresponding JSON payload untouched.
func Build(id string, declaredSchemaJSON, parameterShapeJSON, transformOutputJSON []byte) []byte {
	return build([]candidate{{id: id, suffixes: allSuffixes}}, declaredSchemaJSON, parameterShapeJSON, transformOutputJSON)
}

// BuildIncomplete assembles a module exporting only the given subset of the
// three required suffixes under id, modeling a transformer artifact that
// does not export a complete candidate (the plugin host's "no candidate
// transformer" case).
func BuildIncomplete(id string, suffixes []string, declaredSchemaJSON, parameterShapeJSON, transformOutputJSON []byte) []byte {
	return build([]candidate{{id: id, suffixes: suffixes}}, declaredSchemaJSON, parameterShapeJSON, transformOutputJSON)
}

// BuildMultiCandidate assembles a module that exports a complete triple
// under every id in ids, all backed by the same three underlying
// functions, modeling an artifact with more than one candidate transformer
// (the plugin host's "multiple candidate transformers" case).
func BuildMultiCandidate(ids []string, declaredSchemaJSON, parameterShapeJSON, transformOutputJSON []byte) []byte {
	candidates := make([]candidate, len(ids))
	for i, id := range ids {
		candidates[i] = candidate{id: id, suffixes: allSuffixes}
	}
	return build(candidates, declaredSchemaJSON, parameterShapeJSON, transformOutputJSON)
}

var allSuffixes = []string{"declared_schema", "parameter_shape", "transform"}

type candidate struct {
	id       string
	suffixes []string
}

func build(candidates []candidate, declaredSchemaJSON, parameterShapeJSON, transformOutputJSON []byte) []byte {
	offsetDS := 64
	offsetPS := offsetDS + len(declaredSchemaJSON)
	offsetTR := offsetPS + len(parameterShapeJSON)

	packedDS := packPtrLen(offsetDS, len(declaredSchemaJSON))
	packedPS := packPtrLen(offsetPS, len(parameterShapeJSON))
	packedTR := packPtrLen(offsetTR, len(transformOutputJSON))

	// Type section: 0=malloc(i32)->i32, 1=free(i32)->(), 2=entry(i32,i32)->i64.
	typeSec := section(1, concat(
		uleb(3),
		functype([]byte{valI32}, []byte{valI32}),
		functype([]byte{valI32}, []byte{}),
		functype([]byte{valI32, valI32}, []byte{valI64}),
	))

	// Function section: malloc, free, declared_schema, parameter_shape, transform.
	funcSec := section(3, concat(uleb(5), uleb(0), uleb(1), uleb(2), uleb(2), uleb(2)))

	memSec := section(5, concat(uleb(1), []byte{0x00}, uleb(2)))

	globalSec := section(6, concat(
		uleb(1),
		[]byte{valI32, 0x01},
		[]byte{opI32Const}, sleb(bumpGlobalStart), []byte{opEnd},
	))

	exportEntries := [][]byte{
		exportEntry("memory", exportKindMem, 0),
		exportEntry("malloc", exportKindFunc, 0),
		exportEntry("free", exportKindFunc, 1),
	}
	for _, c := range candidates {
		for _, suffix := range c.suffixes {
			exportEntries = append(exportEntries, exportEntry(c.id+"__"+suffix, exportKindFunc, funcIndexFor(suffix)))
		}
	}
	exportContent := uleb(uint64(len(exportEntries)))
	for _, e := range exportEntries {
		exportContent = append(exportContent, e...)
	}
	exportSec := section(7, exportContent)

	mallocBody := funcBody([]byte{valI32}, concat(
		[]byte{opGlobalGet}, uleb(0),
		[]byte{opLocalSet}, uleb(1),
		[]byte{opGlobalGet}, uleb(0),
		[]byte{opLocalGet}, uleb(0),
		[]byte{opI32Add},
		[]byte{opGlobalSet}, uleb(0),
		[]byte{opLocalGet}, uleb(1),
	))
	freeBody := funcBody(nil, nil)
	dsBody := funcBody(nil, concat([]byte{opI64Const}, sleb(int64(packedDS))))
	psBody := funcBody(nil, concat([]byte{opI64Const}, sleb(int64(packedPS))))
	trBody := funcBody(nil, concat([]byte{opI64Const}, sleb(int64(packedTR))))

	codeSec := section(10, concat(
		uleb(5),
		funcEntry(mallocBody), funcEntry(freeBody),
		funcEntry(dsBody), funcEntry(psBody), funcEntry(trBody),
	))

	dataSec := section(11, concat(
		uleb(3),
		dataEntry(offsetDS, declaredSchemaJSON),
		dataEntry(offsetPS, parameterShapeJSON),
		dataEntry(offsetTR, transformOutputJSON),
	))

	module := concat(
		[]byte{0x00, 0x61, 0x73, 0x6D}, // magic "\0asm"
		[]byte{0x01, 0x00, 0x00, 0x00}, // version 1
		typeSec, funcSec, memSec, globalSec, exportSec, codeSec, dataSec,
	)
	return module
}

func funcIndexFor(suffix string) int {
	switch suffix {
	case "declared_schema":
		return 2
	case "parameter_shape":
		return 3
	case "transform":
		return 4
	default:
		panic("wasmfixture: unknown entrypoint suffix " + suffix)
	}
}

func packPtrLen(ptr, length int) uint64 {
	return uint64(ptr)<<32 | uint64(uint32(length))
}

func section(id byte, content []byte) []byte {
	return concat([]byte{id}, uleb(uint64(len(content))), content)
}

func functype(params, results []byte) []byte {
	return concat([]byte{0x60}, uleb(uint64(len(params))), params, uleb(uint64(len(results))), results)
}

func exportEntry(name string, kind byte, idx int) []byte {
	return concat(uleb(uint64(len(name))), []byte(name), []byte{kind}, uleb(uint64(idx)))
}

// funcBody encodes a function body: one local-declaration group per entry
// in extraLocals (always count 1, matching how these fixtures use locals),
// followed by instrs and a trailing end opcode.
func funcBody(extraLocals []byte, instrs []byte) []byte {
	var locals []byte
	if len(extraLocals) == 0 {
		locals = uleb(0)
	} else {
		locals = uleb(uint64(len(extraLocals)))
		for _, lt := range extraLocals {
			locals = append(locals, uleb(1)...)
			locals = append(locals, lt)
		}
	}
	return concat(locals, instrs, []byte{opEnd})
}

func funcEntry(body []byte) []byte {
	return concat(uleb(uint64(len(body))), body)
}

func dataEntry(offset int, data []byte) []byte {
	return concat(
		[]byte{0x00},
		[]byte{opI32Const}, sleb(int64(offset)), []byte{opEnd},
		uleb(uint64(len(data))), data,
	)
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// uleb encodes v as unsigned LEB128.
func uleb(v uint64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if v == 0 {
			return out
		}
	}
}

// sleb encodes v as signed LEB128.
func sleb(v int64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		signBitSet := b&0x40 != 0
		if (v == 0 && !signBitSet) || (v == -1 && signBitSet) {
			out = append(out, b)
			return out
		}
		out = append(out, b|0x80)
	}
}
