package plugin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tetratelabs/wazero/api"
)

// wasmBridge calls one candidate transformer's three exported functions
// (declaredSchema/parameterShape/transform) using the JSON-over-linear-
// memory calling convention: the guest exports malloc/free, each transformer
// call takes an (input_ptr, input_len) pair and returns a packed uint64 of
// (output_ptr<<32)|output_len.
type wasmBridge struct {
	module api.Module
	memory api.Memory

	malloc api.Function
	free   api.Function

	declaredSchema api.Function
	parameterShape api.Function
	transform      api.Function
}

func newWASMBridge(module api.Module, entry candidateEntrypoints) (*wasmBridge, error) {
	memory := module.Memory()
	if memory == nil {
		return nil, fmt.Errorf("module does not export memory")
	}

	malloc := module.ExportedFunction("malloc")
	if malloc == nil {
		return nil, fmt.Errorf("module does not export malloc")
	}
	free := module.ExportedFunction("free")
	if free == nil {
		return nil, fmt.Errorf("module does not export free")
	}

	declaredSchema := module.ExportedFunction(entry.declaredSchema)
	parameterShape := module.ExportedFunction(entry.parameterShape)
	transformFn := module.ExportedFunction(entry.transform)
	if declaredSchema == nil || parameterShape == nil || transformFn == nil {
		return nil, fmt.Errorf("module does not export the full entrypoint set for %q", entry.id)
	}

	return &wasmBridge{
		module:         module,
		memory:         memory,
		malloc:         malloc,
		free:           free,
		declaredSchema: declaredSchema,
		parameterShape: parameterShape,
		transform:      transformFn,
	}, nil
}

// callJSON marshals req, invokes fn with the packed-pointer convention, and
// unmarshals the result into resp.
func (b *wasmBridge) callJSON(ctx context.Context, fn api.Function, req any, resp any) error {
	var input []byte
	if req != nil {
		var err error
		input, err = json.Marshal(req)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	output, err := b.call(ctx, fn, input)
	if err != nil {
		return err
	}
	if resp == nil {
		return nil
	}
	if err := json.Unmarshal(output, resp); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

func (b *wasmBridge) call(ctx context.Context, fn api.Function, input []byte) ([]byte, error) {
	var inputPtr, inputLen uint32
	if len(input) > 0 {
		ptr, err := b.allocate(ctx, uint32(len(input)))
		if err != nil {
			return nil, fmt.Errorf("allocate input: %w", err)
		}
		defer b.deallocate(ctx, ptr)

		if !b.memory.Write(ptr, input) {
			return nil, fmt.Errorf("write input to module memory")
		}
		inputPtr, inputLen = ptr, uint32(len(input))
	}

	results, err := fn.Call(ctx, uint64(inputPtr), uint64(inputLen))
	if err != nil {
		return nil, fmt.Errorf("call failed: %w", err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("call returned no results")
	}

	packed := results[0]
	outputPtr := uint32(packed >> 32)
	outputLen := uint32(packed & 0xFFFFFFFF)
	if outputLen == 0 {
		return []byte("{}"), nil
	}

	output, ok := b.memory.Read(outputPtr, outputLen)
	if !ok {
		return nil, fmt.Errorf("read output from module memory")
	}
	// Copy before freeing: Read returns a view into linear memory that is
	// invalidated once the guest reclaims the page.
	owned := make([]byte, len(output))
	copy(owned, output)
	_ = b.deallocate(ctx, outputPtr)

	return owned, nil
}

func (b *wasmBridge) allocate(ctx context.Context, size uint32) (uint32, error) {
	results, err := b.malloc.Call(ctx, uint64(size))
	if err != nil {
		return 0, fmt.Errorf("malloc: %w", err)
	}
	if len(results) == 0 || uint32(results[0]) == 0 {
		return 0, fmt.Errorf("malloc returned null pointer")
	}
	return uint32(results[0]), nil
}

func (b *wasmBridge) deallocate(ctx context.Context, ptr uint32) error {
	_, err := b.free.Call(ctx, uint64(ptr))
	return err
}
