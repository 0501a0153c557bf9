package core

// priceLevel is the FIFO queue of orders resting at one price. It never
// holds a zero-quantity order. An emptied level keeps its slot so that
// location index handles stay valid.
type priceLevel struct {
	price  Price
	orders []*Order
	volume Quantity
}

func (l *priceLevel) push(o *Order) {
	l.orders = append(l.orders, o)
	l.volume += o.quantity
}

func (l *priceLevel) front() *Order {
	if len(l.orders) == 0 {
		return nil
	}
	return l.orders[0]
}

func (l *priceLevel) popFront() *Order {
	if len(l.orders) == 0 {
		return nil
	}
	o := l.orders[0]
	l.orders[0] = nil
	l.orders = l.orders[1:]
	l.volume -= o.quantity
	return o
}

// fill takes q units off the head order in place, keeping its time priority
func (l *priceLevel) fill(o *Order, q Quantity) {
	o.decreaseQuantity(q)
	l.volume -= q
}

// remove scans the queue for id and removes it. Absent ids are a no-op.
func (l *priceLevel) remove(id OrderID) (*Order, bool) {
	for i, o := range l.orders {
		if o.id != id {
			continue
		}
		copy(l.orders[i:], l.orders[i+1:])
		l.orders[len(l.orders)-1] = nil
		l.orders = l.orders[:len(l.orders)-1]
		l.volume -= o.quantity
		return o, true
	}
	return nil, false
}

func (l *priceLevel) contains(id OrderID) bool {
	for _, o := range l.orders {
		if o.id == id {
			return true
		}
	}
	return false
}

func (l *priceLevel) empty() bool {
	return len(l.orders) == 0
}

func (l *priceLevel) len() int {
	return len(l.orders)
}
