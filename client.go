package modbus

import (
	"fmt"
	"sync"
	"time"
)

// SessionState is the three-state session machine driving exactly the
// head of the pending-request queue at any given moment.
type SessionState uint

const (
	Idle SessionState = iota
	SendingRequest
	WaitingResponse
)

func (s SessionState) String() (out string) {
	switch s {
	case SendingRequest:
		out = "sending-request"
	case WaitingResponse:
		out = "waiting-response"
	default:
		out = "idle"
	}

	return
}

// Option configures a Client at construction time.
type Option func(c *Client)

func WithTransferMode(mode TransferMode) Option {
	return func(c *Client) {
		c.mode = mode
		c.codec = newFrameCodec(mode)
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.responseTimeout = d }
}

func WithRetryTimes(n int) Option {
	return func(c *Client) { c.retryTimes = n }
}

func WithFrameInterval(d time.Duration) Option {
	return func(c *Client) { c.frameInterval = d }
}

func WithBroadcastTurnaround(d time.Duration) Option {
	return func(c *Client) { c.broadcastTurnaround = d }
}

func WithOpenRetryTimes(times int, delay time.Duration) Option {
	return func(c *Client) { c.openRetryTimes, c.openRetryDelay = times, delay }
}

func WithHandlers(h Handlers) Option {
	return func(c *Client) { c.handlers = h }
}

func WithLogger(l *logger) Option {
	return func(c *Client) { c.logger = l }
}

// Client is a Modbus master. All of its mutable engine state (the
// pending-request queue, the session state, outstanding timers) is
// owned by one goroutine started from NewClient; every exported method
// communicates with it by sending a value over c.events, the same way
// the original's slots are only ever invoked on its single Qt thread.
// The status getters (IsOpened, IsClosed, IsIdle, PendingRequestSize,
// ErrorString) are the exception: they read a snapshot the run loop
// keeps under statusMu.
type Client struct {
	transport Transport
	mode      TransferMode
	codec     frameCodec
	sched     scheduler
	logger    *logger

	handlers Handlers

	frameInterval       time.Duration
	responseTimeout     time.Duration
	retryTimes          int
	broadcastTurnaround time.Duration
	openRetryTimes      int
	openRetryDelay      time.Duration

	events chan interface{}

	statusMu    sync.RWMutex
	opened      bool
	pendingSize int
	lastErr     error
}

// NewClient builds a Client driving transport, which is wrapped in a
// reconnectable decorator so the engine never talks to a raw link
// directly. opts are applied in order; transfer mode defaults to Rtu.
func NewClient(transport Transport, opts ...Option) (c *Client) {
	c = &Client{
		mode:                Rtu,
		sched:               realScheduler{},
		logger:              newLogger("modbus-client", nil),
		frameInterval:       60 * time.Millisecond,
		responseTimeout:     1000 * time.Millisecond,
		retryTimes:          0,
		broadcastTurnaround: 200 * time.Millisecond,
		openRetryTimes:      0,
		openRetryDelay:      1 * time.Second,
		events:              make(chan interface{}, 32),
	}
	c.codec = newFrameCodec(c.mode)

	for _, opt := range opts {
		opt(c)
	}

	c.transport = newReconnectableTransport(transport, c.sched)
	c.transport.(*reconnectableTransport).SetOpenRetryTimes(c.openRetryTimes, c.openRetryDelay)
	c.transport.SetEvents(TransportEvents{
		Opened:         func() { c.events <- evTransportOpened{} },
		Closed:         func() { c.events <- evTransportClosed{} },
		ConnectionLost: func(err error) { c.events <- evConnectionLost{err: err} },
		ReadyRead:      func() { c.events <- evReadyRead{} },
		Error:          func(err error) { c.events <- evTransportError{err: err} },
	})

	go c.run()

	return
}

func NewRTUClient(conf SerialConfig, opts ...Option) (c *Client) {
	c = NewClient(newSerialTransport(conf), append([]Option{WithTransferMode(Rtu)}, opts...)...)
	return
}

func NewASCIIClient(conf SerialConfig, opts ...Option) (c *Client) {
	c = NewClient(newSerialTransport(conf), append([]Option{WithTransferMode(Ascii)}, opts...)...)
	return
}

func NewTCPClient(conf TCPConfig, opts ...Option) (c *Client) {
	c = NewClient(newTCPTransport(conf), append([]Option{WithTransferMode(Mbap)}, opts...)...)
	return
}

// --- run-loop internal event types ---

type evTransportOpened struct{}
type evTransportClosed struct{}
type evConnectionLost struct{ err error }
type evTransportError struct{ err error }
type evReadyRead struct{}
type evDispatchTick struct{}
type evResponseTimeout struct{ seq uint64 }
type evOpenCall struct{ resultCh chan error }
type evCloseCall struct{ resultCh chan error }
type evEnqueue struct{ req *Request }
type evFunc struct{ fn func() }

// do marshals fn onto the run loop and blocks until it has run,
// preserving the single-owner invariant for anything that touches
// engine state (configuration changes).
func (c *Client) do(fn func()) {
	done := make(chan struct{})
	c.events <- evFunc{fn: func() {
		fn()
		close(done)
	}}
	<-done

	return
}

// Open opens the underlying transport.
func (c *Client) Open() (err error) {
	resultCh := make(chan error, 1)
	c.events <- evOpenCall{resultCh: resultCh}
	err = <-resultCh

	return
}

// Close closes the underlying transport and drains any pending
// requests without completion events, per the chosen queue-draining
// policy.
func (c *Client) Close() (err error) {
	resultCh := make(chan error, 1)
	c.events <- evCloseCall{resultCh: resultCh}
	err = <-resultCh

	return
}

func (c *Client) IsOpened() (opened bool) {
	c.statusMu.RLock()
	opened = c.opened
	c.statusMu.RUnlock()

	return
}

func (c *Client) IsClosed() (closed bool) {
	closed = !c.IsOpened()
	return
}

func (c *Client) IsIdle() (idle bool) {
	c.statusMu.RLock()
	idle = c.pendingSize == 0
	c.statusMu.RUnlock()

	return
}

func (c *Client) PendingRequestSize() (n int) {
	c.statusMu.RLock()
	n = c.pendingSize
	c.statusMu.RUnlock()

	return
}

func (c *Client) ErrorString() (s string) {
	c.statusMu.RLock()
	if c.lastErr != nil {
		s = c.lastErr.Error()
	}
	c.statusMu.RUnlock()

	return
}

func (c *Client) SetTimeout(d time.Duration) { c.do(func() { c.responseTimeout = d }) }

func (c *Client) SetRetryTimes(n int) { c.do(func() { c.retryTimes = n }) }

func (c *Client) SetFrameInterval(d time.Duration) { c.do(func() { c.frameInterval = d }) }

func (c *Client) SetTransferMode(mode TransferMode) {
	c.do(func() {
		c.mode = mode
		c.codec = newFrameCodec(mode)
	})
}

func (c *Client) SetOpenRetryTimes(times int, delay time.Duration) {
	c.do(func() { c.transport.(*reconnectableTransport).SetOpenRetryTimes(times, delay) })
}

// SendRequest enqueues req without blocking for completion; completion
// is observed through Handlers, and, for requests built by the
// convenience wrappers below, through their own blocking return.
func (c *Client) SendRequest(req *Request) (err error) {
	c.events <- evEnqueue{req: req}
	return
}

// --- convenience wrappers ---

func (c *Client) ReadSingleBits(serverAddress ServerAddress, fc FunctionCode, startAddress Address, quantity Quantity) (access *SingleBitAccess, err error) {
	if fc != FcReadCoils && fc != FcReadDiscreteInputs {
		err = ErrUnexpectedParameters
		return
	}

	if quantity == 0 || quantity > 2000 {
		err = ErrUnexpectedParameters
		c.logger.Errorf("quantity of bits out of range (%v)", quantity)
		return
	}

	access = NewSingleBitAccess(startAddress, quantity)
	op := &readBitsOp{fc: fc, access: access}
	req := newRequest(serverAddress, access.MarshalReadRequest(), op)

	resp := c.sendAndWait(req)
	err = resp.Error

	return
}

func (c *Client) WriteSingleCoil(serverAddress ServerAddress, address Address, value BitValue) (err error) {
	access := NewSingleBitAccess(address, 1)
	access.SetValue(value)

	op := &writeSingleCoilOp{access: access}
	req := newRequest(serverAddress, access.MarshalSingleWriteRequest(), op)

	resp := c.sendAndWait(req)
	err = resp.Error

	return
}

func (c *Client) WriteMultipleCoils(serverAddress ServerAddress, startAddress Address, values []BitValue) (err error) {
	if len(values) == 0 || len(values) > 1968 {
		err = ErrUnexpectedParameters
		c.logger.Errorf("quantity of coils out of range (%v)", len(values))
		return
	}

	access := NewSingleBitAccess(startAddress, Quantity(len(values)))
	for i, v := range values {
		access.SetValueAt(startAddress+Address(i), v)
	}

	op := &writeMultipleCoilsOp{access: access}
	req := newRequest(serverAddress, access.MarshalMultipleWriteRequest(), op)

	resp := c.sendAndWait(req)
	err = resp.Error

	return
}

func (c *Client) ReadRegisters(serverAddress ServerAddress, fc FunctionCode, startAddress Address, quantity Quantity, endianness Endianness) (access *SixteenBitAccess, err error) {
	if fc != FcReadHoldingRegisters && fc != FcReadInputRegisters {
		err = ErrUnexpectedParameters
		return
	}

	if quantity == 0 || quantity > 125 {
		err = ErrUnexpectedParameters
		c.logger.Errorf("quantity of registers out of range (%v)", quantity)
		return
	}

	access = NewSixteenBitAccess(startAddress, quantity)
	access.SetEndianness(endianness)
	op := &readRegistersOp{fc: fc, access: access}
	req := newRequest(serverAddress, access.MarshalReadRequest(), op)

	resp := c.sendAndWait(req)
	err = resp.Error

	return
}

func (c *Client) WriteSingleRegister(serverAddress ServerAddress, address Address, value uint16, endianness Endianness) (err error) {
	access := NewSixteenBitAccess(address, 1)
	access.SetEndianness(endianness)
	access.SetValue(value)

	op := &writeSingleRegisterOp{access: access}
	req := newRequest(serverAddress, access.MarshalSingleWriteRequest(), op)

	resp := c.sendAndWait(req)
	err = resp.Error

	return
}

func (c *Client) WriteMultipleRegisters(serverAddress ServerAddress, startAddress Address, values []uint16, endianness Endianness) (err error) {
	if len(values) == 0 || len(values) > 123 {
		err = ErrUnexpectedParameters
		c.logger.Errorf("quantity of registers out of range (%v)", len(values))
		return
	}

	access := NewSixteenBitAccess(startAddress, Quantity(len(values)))
	access.SetEndianness(endianness)
	for i, v := range values {
		access.SetValueAt(startAddress+Address(i), v)
	}

	op := &writeMultipleRegistersOp{access: access}
	req := newRequest(serverAddress, access.MarshalMultipleWriteRequest(), op)

	resp := c.sendAndWait(req)
	err = resp.Error

	return
}

func (c *Client) ReadWriteMultipleRegisters(
	serverAddress ServerAddress,
	readStartAddress Address, readQuantity Quantity,
	writeStartAddress Address, writeValues []uint16,
	endianness Endianness,
) (access *SixteenBitAccess, err error) {
	if readQuantity == 0 || readQuantity > 125 {
		err = ErrUnexpectedParameters
		return
	}

	if len(writeValues) == 0 || len(writeValues) > 121 {
		err = ErrUnexpectedParameters
		return
	}

	access = NewSixteenBitAccess(readStartAddress, readQuantity)
	access.SetEndianness(endianness)
	access.SetWriteRange(writeStartAddress, Quantity(len(writeValues)))
	for i, v := range writeValues {
		access.SetValueAt(writeStartAddress+Address(i), v)
	}

	op := &readWriteRegistersOp{access: access}
	req := newRequest(serverAddress, access.MarshalReadWriteRequest(), op)

	resp := c.sendAndWait(req)
	err = resp.Error

	return
}

// sendAndWait attaches a private completion channel to req, enqueues
// it, and blocks for the run loop's eventual completion. This is pure
// Go-side sugar over the non-blocking SendRequest/Handlers contract;
// the engine itself is never blocked by it.
func (c *Client) sendAndWait(req *Request) (resp *Response) {
	req.done = make(chan *Response, 1)
	c.events <- evEnqueue{req: req}
	resp = <-req.done

	return
}

// --- run loop ---

// runState is the engine state touched only from run(); everything in
// Client itself above is either immutable after construction or
// guarded by statusMu for cheap concurrent reads.
type runState struct {
	queue           requestQueue
	state           SessionState
	transportOpened bool
	lastCompletion  time.Time
	seq             uint64

	dispatchPending bool
	watchdogCancel  cancelFunc
}

func (c *Client) run() {
	var rs runState

	for ev := range c.events {
		switch e := ev.(type) {
		case evFunc:
			e.fn()

		case evOpenCall:
			e.resultCh <- c.handleOpen(&rs)

		case evCloseCall:
			e.resultCh <- c.handleClose(&rs)

		case evEnqueue:
			c.handleEnqueue(&rs, e.req)

		case evTransportOpened:
			rs.transportOpened = true
			c.setStatus(true, nil)
			if c.handlers.OnOpened != nil {
				c.handlers.OnOpened(c)
			}

		case evTransportClosed:
			rs.transportOpened = false
			c.setStatus(false, nil)
			if c.handlers.OnClosed != nil {
				c.handlers.OnClosed(c)
			}

		case evConnectionLost:
			rs.transportOpened = false
			c.handleTransportFailure(&rs, e.err)

		case evTransportError:
			rs.transportOpened = false
			c.handleTransportFailure(&rs, e.err)

		case evReadyRead:
			c.handleReadyRead(&rs)

		case evDispatchTick:
			c.handleDispatchTick(&rs)

		case evResponseTimeout:
			c.handleTimeout(&rs, e.seq)
		}

		c.statusMu.Lock()
		c.pendingSize = rs.queue.len()
		c.statusMu.Unlock()
	}
}

func (c *Client) setStatus(opened bool, err error) {
	c.statusMu.Lock()
	c.opened = opened
	if err != nil {
		c.lastErr = err
	}
	c.statusMu.Unlock()

	return
}

func (c *Client) handleOpen(rs *runState) (err error) {
	err = c.transport.Open()
	if err == nil {
		rs.transportOpened = true
		c.setStatus(true, nil)
	}

	return
}

func (c *Client) handleClose(rs *runState) (err error) {
	if rs.watchdogCancel != nil {
		rs.watchdogCancel()
		rs.watchdogCancel = nil
	}

	c.dropQueue(rs, ErrClientClosed)
	rs.state = Idle
	rs.transportOpened = false

	err = c.transport.Close()
	c.setStatus(false, nil)

	return
}

func (c *Client) handleEnqueue(rs *runState, req *Request) {
	if req.checker.CalcResponseSize == nil {
		c.logger.Errorf("send_request called with no response DataChecker on function code 0x%02x; rejecting", req.FunctionCode)
		if req.done != nil {
			req.done <- &Response{ServerAddress: req.ServerAddress, FunctionCode: req.FunctionCode, Error: ErrUnexpectedParameters}
		}
		return
	}

	if !rs.transportOpened {
		c.logger.Warning("send_request called while transport is closed; dropping request")
		if req.done != nil {
			req.done <- &Response{ServerAddress: req.ServerAddress, FunctionCode: req.FunctionCode, Error: ErrClientClosed}
		}
		return
	}

	retries := c.retryTimes
	if req.RetryTimes >= 0 {
		retries = req.RetryTimes
	}

	elem := &queueElement{request: req, retryTimesRemaining: retries}
	rs.queue.push(elem)

	if rs.state == Idle && rs.queue.len() > 0 {
		c.scheduleDispatch(rs, c.delaySinceLastCompletion(rs))
	}

	return
}

func (c *Client) delaySinceLastCompletion(rs *runState) (d time.Duration) {
	elapsed := time.Since(rs.lastCompletion)
	if elapsed >= c.frameInterval {
		d = 0
	} else {
		d = c.frameInterval - elapsed
	}

	return
}

func (c *Client) scheduleDispatch(rs *runState, delay time.Duration) {
	rs.state = SendingRequest
	if rs.dispatchPending {
		return
	}

	rs.dispatchPending = true
	c.sched.after(delay, func() { c.events <- evDispatchTick{} })

	return
}

func (c *Client) handleDispatchTick(rs *runState) {
	rs.dispatchPending = false

	if rs.state != SendingRequest || rs.queue.len() == 0 {
		return
	}

	head := rs.queue.head()
	a := adu{serverAddress: head.request.ServerAddress, pdu: pdu{functionCode: head.request.FunctionCode, data: head.request.Data}}
	head.frame = c.codec.newFrame(a)
	head.dataReceived = nil

	out := head.frame.Marshal()
	c.logger.Debugf("writing %d byte(s) to server %v, function code 0x%02x", len(out), head.request.ServerAddress, head.request.FunctionCode)
	if err := c.transport.Write(out); err != nil {
		c.handleTransportFailure(rs, err)
		return
	}

	if head.request.ServerAddress == BroadcastAddress {
		if head.request.done != nil {
			head.request.done <- &Response{ServerAddress: head.request.ServerAddress, FunctionCode: head.request.FunctionCode}
		}
		rs.queue.popHead()
		rs.state = Idle
		rs.lastCompletion = time.Now()
		c.maybeScheduleNext(rs, c.broadcastTurnaround)
		return
	}

	rs.state = WaitingResponse
	rs.seq++
	head.seq = rs.seq
	seq := rs.seq
	rs.watchdogCancel = c.sched.after(c.responseTimeout, func() { c.events <- evResponseTimeout{seq: seq} })

	return
}

func (c *Client) maybeScheduleNext(rs *runState, delay time.Duration) {
	if rs.state == Idle && rs.queue.len() > 0 {
		c.scheduleDispatch(rs, delay)
	}

	return
}

func (c *Client) handleReadyRead(rs *runState) {
	data, _ := c.transport.ReadAll()

	if rs.state != WaitingResponse || rs.queue.len() == 0 {
		c.transport.Clear()
		if len(data) > 0 {
			c.logger.Warningf("discarding %d unsolicited byte(s)", len(data))
		}
		return
	}

	head := rs.queue.head()
	head.dataReceived = append(head.dataReceived, data...)

	result, a, stray, err := head.frame.Unmarshal(head.dataReceived, head.request.checker)
	switch result {
	case NeedMoreData:
		return

	case Failed:
		c.completeHead(rs, nil, err)

	case SizeOk:
		if stray {
			head.dataReceived = nil
			return
		}

		if a.serverAddress != head.request.ServerAddress {
			head.dataReceived = nil
			return
		}

		if err != nil {
			c.completeHead(rs, nil, err)
			return
		}

		c.completeHead(rs, a.pdu.data, err)
	}

	return
}

func (c *Client) handleTimeout(rs *runState, seq uint64) {
	if rs.state != WaitingResponse || rs.seq != seq || rs.queue.len() == 0 {
		return
	}

	rs.watchdogCancel = nil
	head := rs.queue.head()
	head.dataReceived = nil
	rs.state = Idle

	if head.retryTimesRemaining > 0 {
		head.retryTimesRemaining--
		c.maybeScheduleNext(rs, c.frameInterval)
		return
	}

	c.completeHead(rs, nil, ErrTimeout)

	return
}

func (c *Client) completeHead(rs *runState, data []byte, opErr error) {
	if rs.watchdogCancel != nil {
		rs.watchdogCancel()
		rs.watchdogCancel = nil
	}

	head := rs.queue.head()
	rs.queue.popHead()
	rs.state = Idle
	rs.lastCompletion = time.Now()

	resp := &Response{
		ServerAddress: head.request.ServerAddress,
		FunctionCode:  head.request.FunctionCode,
		Data:          data,
		Error:         opErr,
	}

	if head.request.op != nil {
		head.request.op.finish(c, data, opErr)
	}

	if c.handlers.OnRequestFinished != nil {
		c.handlers.OnRequestFinished(c, head.request, resp)
	}

	if head.request.done != nil {
		head.request.done <- resp
	}

	c.maybeScheduleNext(rs, c.frameInterval)

	return
}

// handleTransportFailure implements the "transport error" and
// "close/reconnect" queue-draining behaviour: the entire queue is
// dropped with no per-request completion event, a single error is
// surfaced through Handlers, and any caller blocked in a convenience
// wrapper's sendAndWait is unblocked with err so it never hangs (silent at the protocol-event level, not at the Go channel
// level).
func (c *Client) handleTransportFailure(rs *runState, err error) {
	if rs.watchdogCancel != nil {
		rs.watchdogCancel()
		rs.watchdogCancel = nil
	}

	rs.state = Idle
	rs.dispatchPending = false

	c.setStatus(false, err)
	c.dropQueue(rs, err)

	if c.handlers.OnError != nil {
		c.handlers.OnError(c, err)
	}

	return
}

func (c *Client) dropQueue(rs *runState, err error) {
	dropped := rs.queue.drain()
	for _, e := range dropped {
		if e.request.done != nil {
			e.request.done <- &Response{ServerAddress: e.request.ServerAddress, FunctionCode: e.request.FunctionCode, Error: err}
		}
	}

	return
}

// String renders the client's identity for logging.
func (c *Client) String() (s string) {
	s = fmt.Sprintf("modbus-client(%s)", c.mode)
	return
}
