package common

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/apex/log"
	"github.com/stretchr/testify/assert"
)

func TestIntervalTimer(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	wg := sync.WaitGroup{}
	defer wg.Wait()
	ctxt, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Case 1: one-shot fires exactly once
	{
		uut, err := GetIntervalTimerInstance("ut-one-shot", ctxt, &wg)
		assert.Nil(err)
		triggered := make(chan bool, 4)
		assert.Nil(uut.Start(time.Millisecond*50, func() error {
			triggered <- true
			return nil
		}, true))
		select {
		case <-triggered:
		case <-time.After(time.Second):
			assert.FailNow("timer did not fire")
		}
		select {
		case <-triggered:
			assert.FailNow("one-shot timer fired again")
		case <-time.After(time.Millisecond * 200):
		}
	}

	// Case 2: periodic fires repeatedly until stopped
	{
		uut, err := GetIntervalTimerInstance("ut-periodic", ctxt, &wg)
		assert.Nil(err)
		triggered := make(chan bool, 16)
		assert.Nil(uut.Start(time.Millisecond*50, func() error {
			triggered <- true
			return nil
		}, false))
		for i := 0; i < 3; i++ {
			select {
			case <-triggered:
			case <-time.After(time.Second):
				assert.FailNow("timer did not fire")
			}
		}
		assert.Nil(uut.Stop())
	}

	// Case 3: stop before first trigger
	{
		uut, err := GetIntervalTimerInstance("ut-stopped", ctxt, &wg)
		assert.Nil(err)
		triggered := make(chan bool, 4)
		assert.Nil(uut.Start(time.Millisecond*300, func() error {
			triggered <- true
			return nil
		}, false))
		assert.Nil(uut.Stop())
		select {
		case <-triggered:
			assert.FailNow("stopped timer fired")
		case <-time.After(time.Millisecond * 500):
		}
	}
}
