package sim

import (
	"log"
	"sync"
)

// HookPosBufPush marks when an element is pushed into the buffer.
var HookPosBufPush = &HookPos{Name: "Buffer Push"}

// HookPosBufPop marks when an element is popped from the buffer.
var HookPosBufPop = &HookPos{Name: "Buf Pop"}

// A Buffer is a fifo queue for anything. Push and Pop may be called from
// different goroutines.
//
// Push and Pop hooks run while the buffer is locked, in the order of the
// operations, with the size after the operation as the Detail. A hook must
// not call the buffer.
type Buffer interface {
	Named
	Hookable

	CanPush() bool
	Push(e interface{})
	Pop() interface{}
	Capacity() int
	Size() int

	// Remove all elements in the buffer
	Clear()
}

// NewBuffer creates a default buffer object. A capacity of 0 makes the
// buffer unbounded.
func NewBuffer(name string, capacity int) Buffer {
	NameMustBeValid(name)

	if capacity < 0 {
		log.Panicf("buffer %s: capacity must not be negative", name)
	}

	return &bufferImpl{
		name:     name,
		capacity: capacity,
	}
}

type bufferImpl struct {
	HookableBase

	lock     sync.Mutex
	name     string
	capacity int
	elements []interface{}
}

// Name returns the name of the buffer.
func (b *bufferImpl) Name() string {
	return b.name
}

func (b *bufferImpl) CanPush() bool {
	b.lock.Lock()
	defer b.lock.Unlock()

	return b.canPush()
}

func (b *bufferImpl) canPush() bool {
	return b.capacity == 0 || len(b.elements) < b.capacity
}

func (b *bufferImpl) Push(e interface{}) {
	b.lock.Lock()
	defer b.lock.Unlock()

	if !b.canPush() {
		log.Panic("buffer overflow")
	}

	b.elements = append(b.elements, e)

	if b.NumHooks() > 0 {
		b.InvokeHook(HookCtx{
			Domain: b,
			Pos:    HookPosBufPush,
			Item:   e,
			Detail: len(b.elements),
		})
	}
}

func (b *bufferImpl) Pop() interface{} {
	b.lock.Lock()
	defer b.lock.Unlock()

	if len(b.elements) == 0 {
		return nil
	}

	e := b.elements[0]
	b.elements[0] = nil
	b.elements = b.elements[1:]

	if b.NumHooks() > 0 {
		b.InvokeHook(HookCtx{
			Domain: b,
			Pos:    HookPosBufPop,
			Item:   e,
			Detail: len(b.elements),
		})
	}

	return e
}

func (b *bufferImpl) Capacity() int {
	return b.capacity
}

func (b *bufferImpl) Size() int {
	b.lock.Lock()
	defer b.lock.Unlock()

	return len(b.elements)
}

func (b *bufferImpl) Clear() {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.elements = nil
}
