package utils

import (
	"context"
	"fmt"
	"sync"
)

// MailBox carries messages between NP worker goroutines. A worker posts
// into its private outbox, then delivers everything in one step. Delivery
// never blocks, so two workers delivering to each other cannot deadlock.
type MailBox[T any] struct {
	NP        int
	PostMsgQs []map[int]*DynBuffer[T] // One for each thread, key is target thread
	MailFlag  []bool                  // MyThread has messages in its outbox
	inbox     []*DynBuffer[T]
	locks     []sync.Mutex
	notify    []chan struct{}
}

func NewMailBox[T any](NP int) *MailBox[T] {
	mb := &MailBox[T]{
		NP:        NP,
		PostMsgQs: make([]map[int]*DynBuffer[T], NP),
		MailFlag:  make([]bool, NP),
		inbox:     make([]*DynBuffer[T], NP),
		locks:     make([]sync.Mutex, NP),
		notify:    make([]chan struct{}, NP),
	}
	for n := 0; n < NP; n++ {
		mb.PostMsgQs[n] = make(map[int]*DynBuffer[T])
		mb.inbox[n] = NewDynBuffer[T](0)
		mb.notify[n] = make(chan struct{}, 1)
	}
	return mb
}

func (mb *MailBox[T]) PostMessage(myThread, targetThread int, msg T) {
	if targetThread < 0 || targetThread > mb.NP-1 {
		panic(fmt.Sprintf("Target thread %d out of bounds", targetThread))
	}
	tgt, exists := mb.PostMsgQs[myThread][targetThread]
	if !exists {
		tgt = NewDynBuffer[T](0)
		mb.PostMsgQs[myThread][targetThread] = tgt
	}
	tgt.Add(msg)
	mb.MailFlag[myThread] = true
}

// DeliverMyMessages moves the contents of myThread's outbox into the
// targets' inboxes and wakes them.
func (mb *MailBox[T]) DeliverMyMessages(myThread int) {
	if !mb.MailFlag[myThread] {
		return
	}
	for targetThread, msgBuffer := range mb.PostMsgQs[myThread] {
		if msgBuffer.Len() == 0 {
			continue
		}
		mb.locks[targetThread].Lock()
		mb.inbox[targetThread].Add(msgBuffer.Cells()...)
		mb.locks[targetThread].Unlock()
		msgBuffer.Reset()
		select {
		case mb.notify[targetThread] <- struct{}{}:
		default:
		}
	}
	mb.MailFlag[myThread] = false
}

// ReceiveMyMessages drains myThread's inbox without blocking
func (mb *MailBox[T]) ReceiveMyMessages(myThread int) (msgs []T) {
	mb.locks[myThread].Lock()
	if n := mb.inbox[myThread].Len(); n != 0 {
		msgs = make([]T, n)
		copy(msgs, mb.inbox[myThread].Cells())
		mb.inbox[myThread].Reset()
	}
	mb.locks[myThread].Unlock()
	return
}

// WaitMyMessages blocks until at least one message has arrived for myThread
// or the context is done.
func (mb *MailBox[T]) WaitMyMessages(ctx context.Context, myThread int) (msgs []T, err error) {
	for {
		if msgs = mb.ReceiveMyMessages(myThread); len(msgs) != 0 {
			return
		}
		select {
		case <-mb.notify[myThread]:
		case <-ctx.Done():
			err = ctx.Err()
			return
		}
	}
}

// PartitionMap splits MaxIndex items into ParallelDegree contiguous buckets
type PartitionMap struct {
	MaxIndex       int
	ParallelDegree int
	Partitions     [][2]int // Beginning and end index of partitions
}

func NewPartitionMap(ParallelDegree, maxIndex int) (pm *PartitionMap) {
	pm = &PartitionMap{
		MaxIndex:       maxIndex,
		ParallelDegree: ParallelDegree,
		Partitions:     make([][2]int, ParallelDegree),
	}
	for n := 0; n < ParallelDegree; n++ {
		pm.Partitions[n] = pm.Split1D(n)
	}
	return
}

// GetBucket returns the bucket holding index k and the bucket's range, or
// bucketNum -1 when k lies outside the map.
func (pm *PartitionMap) GetBucket(k int) (bucketNum, min, max int) {
	if k < 0 || k >= pm.MaxIndex {
		return -1, 0, 0
	}
	bucketNum = pm.ParallelDegree * k / pm.MaxIndex
	for {
		b := pm.Partitions[bucketNum]
		switch {
		case k < b[0]:
			bucketNum--
		case k >= b[1]:
			bucketNum++
		default:
			min, max = b[0], b[1]
			return
		}
	}
}

func (pm *PartitionMap) GetBucketRange(bucketNum int) (kMin, kMax int) {
	kMin, kMax = pm.Partitions[bucketNum][0], pm.Partitions[bucketNum][1]
	return
}

// Split1D returns the range of bucket threadNum. Sizes differ by at most
// one, the remainder is spread over the leading buckets.
func (pm *PartitionMap) Split1D(threadNum int) (bucket [2]int) {
	var (
		Npart     = pm.MaxIndex / pm.ParallelDegree
		remainder = pm.MaxIndex % pm.ParallelDegree
		extra     = min(threadNum, remainder)
	)
	bucket[0] = threadNum*Npart + extra
	bucket[1] = bucket[0] + Npart
	if threadNum < remainder {
		bucket[1]++
	}
	return
}
