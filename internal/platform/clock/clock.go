// Package clock abstrae "ahora" para que la clasificación de vencidos
// y expirados sea testeable.
package clock

import "time"

type Clock interface {
	Now() time.Time
}

// System usa el reloj del proceso.
type System struct{}

func (System) Now() time.Time { return time.Now() }

// Fixed devuelve siempre el mismo instante (tests).
type Fixed time.Time

func (f Fixed) Now() time.Time { return time.Time(f) }

// Func adapta una función a Clock.
type Func func() time.Time

func (f Func) Now() time.Time { return f() }
