package vm

import (
	"github.com/funvibe/july/internal/code"
	"github.com/funvibe/july/internal/diagnostics"
	"github.com/funvibe/july/internal/object"
)

func (vm *VM) executeBinaryOperation(op code.Opcode) error {
	right := vm.pop()
	left := vm.pop()

	switch {
	case left.Type() == object.INTEGER_OBJ && right.Type() == object.INTEGER_OBJ:
		return vm.executeBinaryIntegerOperation(op, left.(*object.Integer), right.(*object.Integer))
	case left.Type() == object.STRING_OBJ && right.Type() == object.STRING_OBJ && op == code.OpAdd:
		concatenated := left.(*object.String).Value + right.(*object.String).Value
		return vm.push(&object.String{Value: concatenated})
	default:
		return diagnostics.RuntimeTypeError.New("unsupported types for %s: %s and %s",
			operatorSymbol(op), left.Type(), right.Type())
	}
}

func (vm *VM) executeBinaryIntegerOperation(op code.Opcode, left, right *object.Integer) error {
	var result int64

	switch op {
	case code.OpAdd:
		result = left.Value + right.Value
	case code.OpSub:
		result = left.Value - right.Value
	case code.OpMul:
		result = left.Value * right.Value
	case code.OpDiv:
		if right.Value == 0 {
			return diagnostics.DivisionByZero.New("division by zero: %d / 0", left.Value)
		}
		result = left.Value / right.Value
	default:
		return diagnostics.RuntimeTypeError.New("unknown integer operator: %s", op)
	}

	return vm.push(&object.Integer{Value: result})
}

func (vm *VM) executeComparison(op code.Opcode) error {
	right := vm.pop()
	left := vm.pop()

	if op == code.OpGreaterThan {
		l, lok := left.(*object.Integer)
		r, rok := right.(*object.Integer)
		if !lok || !rok {
			return diagnostics.RuntimeTypeError.New("unsupported types for >: %s and %s", left.Type(), right.Type())
		}
		return vm.push(object.NativeBool(l.Value > r.Value))
	}

	equal, err := objectsEqual(left, right)
	if err != nil {
		return err
	}

	switch op {
	case code.OpEqual:
		return vm.push(object.NativeBool(equal))
	case code.OpNotEqual:
		return vm.push(object.NativeBool(!equal))
	default:
		return diagnostics.RuntimeTypeError.New("unknown comparison operator: %s", op)
	}
}

// objectsEqual compares scalars by value. Values of different types are
// never equal. Containers and functions have no equality.
func objectsEqual(left, right object.Object) (bool, error) {
	if left.Type() != right.Type() {
		return false, nil
	}

	switch l := left.(type) {
	case *object.Integer:
		return l.Value == right.(*object.Integer).Value, nil
	case *object.Boolean:
		return l.Value == right.(*object.Boolean).Value, nil
	case *object.String:
		return l.Value == right.(*object.String).Value, nil
	case *object.Null:
		return true, nil
	default:
		return false, diagnostics.RuntimeTypeError.New("cannot compare %s values", left.Type())
	}
}

func (vm *VM) executeBangOperator() error {
	truthy, err := isTruthy(vm.pop())
	if err != nil {
		return err
	}
	return vm.push(object.NativeBool(!truthy))
}

func (vm *VM) executeMinusOperator() error {
	operand := vm.pop()

	integer, ok := operand.(*object.Integer)
	if !ok {
		return diagnostics.RuntimeTypeError.New("unsupported type for negation: %s", operand.Type())
	}
	return vm.push(&object.Integer{Value: -integer.Value})
}

// isTruthy: false, null and 0 are falsy; true and other integers truthy.
// Any other type in a condition is an error.
func isTruthy(obj object.Object) (bool, error) {
	switch obj := obj.(type) {
	case *object.Boolean:
		return obj.Value, nil
	case *object.Null:
		return false, nil
	case *object.Integer:
		return obj.Value != 0, nil
	default:
		return false, diagnostics.RuntimeTypeError.New("%s has no truth value", obj.Type())
	}
}

func (vm *VM) buildArray(startIndex, endIndex int) object.Object {
	elements := make([]object.Object, endIndex-startIndex)

	for i := startIndex; i < endIndex; i++ {
		elements[i-startIndex] = vm.stack[i]
	}

	return &object.Array{Elements: elements}
}

func (vm *VM) buildHash(startIndex, endIndex int) (object.Object, error) {
	hash := object.NewHash((endIndex - startIndex) / 2)

	for i := startIndex; i < endIndex; i += 2 {
		if err := hash.Set(vm.stack[i], vm.stack[i+1]); err != nil {
			return nil, err
		}
	}

	return hash, nil
}

func (vm *VM) executeIndexExpression(left, index object.Object) error {
	switch container := left.(type) {
	case *object.Array:
		i, ok := index.(*object.Integer)
		if !ok {
			return diagnostics.RuntimeTypeError.New("array index must be INTEGER, got %s", index.Type())
		}
		return vm.executeArrayIndex(container, i.Value)
	case *object.Hash:
		value, ok, err := container.Get(index)
		if err != nil {
			return err
		}
		if !ok {
			return vm.push(object.NULL)
		}
		return vm.push(value)
	default:
		return diagnostics.RuntimeTypeError.New("index operator not supported: %s", left.Type())
	}
}

func (vm *VM) executeArrayIndex(array *object.Array, index int64) error {
	last := int64(len(array.Elements) - 1)

	if index < 0 || index > last {
		return vm.push(object.NULL)
	}
	return vm.push(array.Elements[index])
}

// callFunction enters the function on top of the stack. The callee stays
// on the stack until its frame returns.
func (vm *VM) callFunction() error {
	callee := vm.stack[vm.sp-1]

	fn, ok := callee.(*object.CompiledFunction)
	if !ok {
		return diagnostics.RuntimeTypeError.New("calling non-function: %s", callee.Type())
	}
	return vm.pushFrame(NewFrame(fn, vm.sp))
}

// returnFromCall leaves the current frame and cuts the stack back to below
// the callee, dropping anything the frame left behind.
func (vm *VM) returnFromCall() error {
	frame := vm.popFrame()
	if frame.basePointer < 1 || frame.basePointer > vm.sp {
		return diagnostics.StackUnderflow.New("returning frame based at %d, stack holds %d", frame.basePointer, vm.sp)
	}
	vm.sp = frame.basePointer - 1
	return nil
}

func operatorSymbol(op code.Opcode) string {
	switch op {
	case code.OpAdd:
		return "+"
	case code.OpSub:
		return "-"
	case code.OpMul:
		return "*"
	case code.OpDiv:
		return "/"
	default:
		return op.String()
	}
}
