//go:build ruleguard

package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// TimeSince flags manual elapsed-time computation.
//
//	elapsed := time.Now().Sub(start)   ->   elapsed := time.Since(start)
func TimeSince(m dsl.Matcher) {
	m.Match(`time.Now().Sub($x)`).
		Report("use time.Since($x) instead of time.Now().Sub($x)").
		Suggest("time.Since($x)")
}

// TimeUntil flags the symmetric pattern for future deadlines.
func TimeUntil(m dsl.Matcher) {
	m.Match(`$x.Sub(time.Now())`).
		Report("use time.Until($x) instead of $x.Sub(time.Now())").
		Suggest("time.Until($x)")
}

// SprintfConcat flags fmt.Sprintf used for plain two-string concatenation.
func SprintfConcat(m dsl.Matcher) {
	m.Match(`fmt.Sprintf("%s%s", $a, $b)`).
		Where(m["a"].Type.Is("string") && m["b"].Type.Is("string")).
		Report("use $a + $b instead of fmt.Sprintf").
		Suggest("$a + $b")
}

// WaitGroupAddInsideGoroutine flags wg.Add called inside the goroutine it
// guards. The Add must happen before the goroutine starts or Wait can
// return early.
func WaitGroupAddInsideGoroutine(m dsl.Matcher) {
	m.Match(`go func() { $w.Add(1); $*_ }()`).
		Report("call $w.Add(1) before starting the goroutine, not inside it")
}

// ErrorsFmtErrorf flags error wrapping that drops the cause.
//
//	fmt.Errorf("context: %v", err)   ->   fmt.Errorf("context: %w", err)
func ErrorsFmtErrorf(m dsl.Matcher) {
	m.Match(`fmt.Errorf($fmt, $err)`).
		Where(m["fmt"].Text.Matches(`.*%v"$`) && m["err"].Type.Is("error")).
		Report("use %w to wrap errors so errors.Is and errors.As keep working")
}

// ContextBackgroundInRequestPath flags handlers that discard the request
// context when calling downstream.
func ContextBackgroundInRequestPath(m dsl.Matcher) {
	m.Match(`$c.Resolve(context.Background(), $*_)`).
		Report("pass the request context instead of context.Background()")
}

// SleepInTest flags bare sleeps in tests where polling assertions are
// available.
func SleepInTest(m dsl.Matcher) {
	m.Match(`time.Sleep($d)`).
		Where(m.File().Name.Matches(`_test\.go$`) && m["d"].Text.Matches(`^\d+ \* time\.Second$`)).
		Report("prefer assert.Eventually over multi-second sleeps in tests")
}
