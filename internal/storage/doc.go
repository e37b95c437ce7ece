// Package storage сохраняет артефакты заказов в object storage (S3).
//
// Провайдер отдаёт результаты по временным URL из своей выдачи;
// всё, что должно пережить заказ (модель, сгенерированные изображения),
// перекладывается в наш bucket через CopyFromURL.
package storage
